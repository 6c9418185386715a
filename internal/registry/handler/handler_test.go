package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	jwttoken "atelier/internal/jwt_token"
	"atelier/internal/platform/middleware"
	"atelier/internal/registry/events"
	"atelier/internal/registry/models"
	"atelier/internal/registry/service"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
	"atelier/pkg/testutil"
)

var (
	admin   = domain.MustParseAddress("0x000000000000000000000000000000000000a11c")
	bob     = domain.MustParseAddress("0x0000000000000000000000000000000000000b0b")
	royalty = domain.MustParseAddress("0x0000000000000000000000000000000000000077")
)

type HandlerSuite struct {
	suite.Suite
	router   http.Handler
	jwt      *jwttoken.JWTService
	recorder *events.Recorder
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.recorder = events.NewRecorder()
	svc := service.New(store.NewInMemory(models.Control{Admin: admin}), service.WithSink(s.recorder), service.WithLogger(logger))
	s.jwt = jwttoken.NewJWTService("test-signing-key", "atelier", "atelier-registry")

	r := chi.NewRouter()
	New(svc, middleware.RequireCaller(jwttoken.NewCallerValidator(s.jwt), logger), logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) as(caller domain.Address, req *http.Request) *http.Request {
	token, err := s.jwt.IssueCallerToken(caller, time.Hour)
	s.Require().NoError(err)
	return testutil.WithBearer(req, token)
}

func (s *HandlerSuite) mintBody() map[string]any {
	return map[string]any{
		"uri":                "ipfs://design12345",
		"description":        "desc",
		"license":            "MIT License 123",
		"royalty_recipient":  royalty.String(),
		"royalty_percentage": 500,
	}
}

func (s *HandlerSuite) mint() {
	req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", s.mintBody()))
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *HandlerSuite) TestMint() {
	s.Run("creates a token and returns its id", func() {
		req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", s.mintBody()))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[MintResponse](s.T(), rr)
		s.Equal(domain.TokenID(1), resp.TokenID)
	})

	s.Run("requires a bearer token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", s.mintBody()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("rejects a forged token", func() {
		forged := jwttoken.NewJWTService("other-key", "atelier", "atelier-registry")
		token, err := forged.IssueCallerToken(admin, time.Hour)
		s.Require().NoError(err)
		req := testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", s.mintBody()), token)
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusUnauthorized)
	})

	s.Run("non-admin gets 403 with code 100", func() {
		req := s.as(bob, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", s.mintBody()))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertReasonCode(s.T(), rr, 100)
	})

	s.Run("short uri gets 422 with code 110", func() {
		body := s.mintBody()
		body["uri"] = "ipfs://x"
		rr := testutil.DoRequest(s.router, s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", body)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("malformed recipient is a bad request", func() {
		body := s.mintBody()
		body["royalty_recipient"] = "nope"
		rr := testutil.DoRequest(s.router, s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", body)))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("empty recipient is checked after the admin", func() {
		body := s.mintBody()
		body["royalty_recipient"] = ""

		rr := testutil.DoRequest(s.router, s.as(bob, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", body)))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertReasonCode(s.T(), rr, 100)

		rr = testutil.DoRequest(s.router, s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", body)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
		testutil.AssertReasonCode(s.T(), rr, 104)
	})

	s.Run("out-of-range royalty gets code 106", func() {
		for _, bps := range []int64{-1, 1 << 33} {
			body := s.mintBody()
			body["royalty_percentage"] = bps
			rr := testutil.DoRequest(s.router, s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", body)))
			testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
			testutil.AssertReasonCode(s.T(), rr, 106)
		}

		body := s.mintBody()
		body["royalty_percentage"] = -1
		rr := testutil.DoRequest(s.router, s.as(bob, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", body)))
		testutil.AssertReasonCode(s.T(), rr, 100)
	})

	s.Run("unknown fields are rejected", func() {
		req := s.as(admin, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/tokens", `{"uri":"ipfs://design12345","extra":1}`))
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestGetToken() {
	s.Run("unknown id reports absence", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/tokens/7"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertJSONContains(s.T(), rr, "found", false)
	})

	s.Run("returns owner metadata and royalty", func() {
		s.mint()
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/tokens/1"))
		testutil.AssertStatusOK(s.T(), rr)

		resp := testutil.UnmarshalResponse[TokenResponse](s.T(), rr)
		s.True(resp.Found)
		s.Equal(admin, *resp.Owner)
		s.Equal(uint32(1), resp.Metadata.Version)
		s.Equal(uint32(500), resp.Royalty.Percentage)
		s.Nil(resp.Approval)
	})

	s.Run("id zero reports absence", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/tokens/0"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertJSONContains(s.T(), rr, "found", false)
	})

	s.Run("mutating id zero is rejected with code 102", func() {
		req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/0/transfer", map[string]string{"recipient": bob.String()}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertReasonCode(s.T(), rr, 102)

		burn := s.as(admin, testutil.NewRequest(s.T(), http.MethodDelete, "/tokens/0"))
		testutil.AssertReasonCode(s.T(), testutil.DoRequest(s.router, burn), 102)
	})

	s.Run("unknown id is checked before an empty recipient", func() {
		req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/7/transfer", map[string]string{"recipient": ""}))
		testutil.AssertReasonCode(s.T(), testutil.DoRequest(s.router, req), 102)

		req = s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/1/transfer", map[string]string{"recipient": ""}))
		testutil.AssertReasonCode(s.T(), testutil.DoRequest(s.router, req), 104)
	})

	s.Run("non-numeric id is a bad request", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/tokens/abc"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestTransferFlow() {
	s.mint()

	req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/1/transfer", map[string]string{"recipient": bob.String()}))
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/owners/"+bob.String()))
	testutil.AssertStatusOK(s.T(), rr)
	owner := testutil.UnmarshalResponse[OwnerResponse](s.T(), rr)
	s.Equal(1, owner.Balance)
	s.Equal([]domain.TokenID{1}, owner.Tokens)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/owners/"+admin.String()))
	s.Equal(0, testutil.UnmarshalResponse[OwnerResponse](s.T(), rr).Balance)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/owners/"+bob.String()+"/tokens/0"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(domain.TokenID(1), testutil.UnmarshalResponse[TokenByIndexResponse](s.T(), rr).TokenID)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/owners/"+bob.String()+"/tokens/1"))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)

	s.Equal([]models.EventKind{models.EventMint, models.EventRoyalty, models.EventTransfer}, s.recorder.Kinds())

	s.Run("former owner gets 403 with code 101", func() {
		req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/1/transfer", map[string]string{"recipient": admin.String()}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertReasonCode(s.T(), rr, 101)
	})

	s.Run("unknown id gets 404 with code 102", func() {
		req := s.as(bob, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/999/transfer", map[string]string{"recipient": admin.String()}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertReasonCode(s.T(), rr, 102)
	})
}

func (s *HandlerSuite) TestApprovalAndBurn() {
	s.mint()

	approve := func() *http.Request {
		return s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/1/approval", map[string]string{"operator": bob.String()}))
	}
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, approve()), http.StatusNoContent)

	rr := testutil.DoRequest(s.router, approve())
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")

	revoke := s.as(admin, testutil.NewRequest(s.T(), http.MethodDelete, "/tokens/1/approval"))
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, revoke), http.StatusNoContent)

	burn := s.as(admin, testutil.NewRequest(s.T(), http.MethodDelete, "/tokens/1"))
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, burn), http.StatusNoContent)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/tokens/1"))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}

func (s *HandlerSuite) TestMetadata() {
	s.mint()
	body := map[string]string{"uri": "ipfs://design67890", "description": "v2", "license": "MIT License 123"}

	rr := testutil.DoRequest(s.router, s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPut, "/tokens/1/metadata", body)))
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(uint32(2), testutil.UnmarshalResponse[VersionResponse](s.T(), rr).Version)

	freeze := s.as(admin, testutil.NewRequest(s.T(), http.MethodPost, "/tokens/1/metadata/freeze"))
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, freeze), http.StatusNoContent)

	rr = testutil.DoRequest(s.router, s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPut, "/tokens/1/metadata", body)))
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertReasonCode(s.T(), rr, 108)
}

func (s *HandlerSuite) TestAdmin() {
	pause := func(paused bool) *http.Request {
		return s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/paused", map[string]bool{"paused": paused}))
	}

	rr := testutil.DoRequest(s.router, pause(true))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "paused", true)

	s.Run("mint still succeeds while paused", func() {
		s.mint()
	})

	s.Run("transfer is rejected with code 103", func() {
		req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens/1/transfer", map[string]string{"recipient": bob.String()}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertReasonCode(s.T(), rr, 103)
	})

	s.Run("paused flag is required", func() {
		req := s.as(admin, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/admin/paused", `{}`))
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusUnprocessableEntity)
	})

	req := s.as(admin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/transfer", map[string]string{"new_admin": bob.String()}))
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin"))
	testutil.AssertStatusOK(s.T(), rr)
	status := testutil.UnmarshalResponse[StatusResponse](s.T(), rr)
	s.Equal(bob, status.Admin)
	s.True(status.Paused)
	s.Equal(domain.TokenID(1), status.LastTokenID)
}

// The handler trusts whatever caller the auth middleware stored.
func (s *HandlerSuite) TestCallerFromContext() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(models.Control{Admin: admin}))
	passthrough := func(next http.Handler) http.Handler { return next }
	r := chi.NewRouter()
	New(svc, passthrough, logger).Register(r)

	s.Run("caller in context is used", func() {
		req := testutil.WithCaller(testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", s.mintBody()), admin)
		testutil.AssertStatus(s.T(), testutil.DoRequest(r, req), http.StatusCreated)
	})

	s.Run("missing caller is unauthorized", func() {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", s.mintBody()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}
