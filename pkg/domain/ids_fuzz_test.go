package domain

import "testing"

// FuzzParseAddress checks that parsing never panics and that accepted input
// round-trips through its canonical text form.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add(validAddr)
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("0x")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		a, err := ParseAddress(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseAddress(a.String())
		if err != nil {
			t.Fatalf("canonical form failed to parse: %v", err)
		}
		if roundTrip != a {
			t.Fatal("round-trip changed address")
		}
	})
}
