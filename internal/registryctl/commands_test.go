package registryctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"

	jwttoken "atelier/internal/jwt_token"
	"atelier/internal/platform/middleware"
	"atelier/internal/registry/handler"
	"atelier/internal/registry/models"
	"atelier/internal/registry/service"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
)

const signingKey = "registryctl-test-key"

var (
	admin = domain.MustParseAddress("0x000000000000000000000000000000000000a11c")
	bob   = domain.MustParseAddress("0x0000000000000000000000000000000000000b0b")
)

type RegistryctlSuite struct {
	suite.Suite
	server *httptest.Server
	token  string
}

func TestRegistryctlSuite(t *testing.T) {
	suite.Run(t, new(RegistryctlSuite))
}

func (s *RegistryctlSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := jwttoken.NewJWTService(signingKey, "atelier", "atelier-registry")
	svc := service.New(store.NewInMemory(models.Control{Admin: admin}))

	r := chi.NewRouter()
	handler.New(svc, middleware.RequireCaller(jwttoken.NewCallerValidator(jwt), logger), logger).Register(r)
	s.server = httptest.NewServer(r)

	token, err := jwt.IssueCallerToken(admin, time.Hour)
	s.Require().NoError(err)
	s.token = token
}

func (s *RegistryctlSuite) TearDownTest() {
	s.server.Close()
}

func (s *RegistryctlSuite) run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCommand(viper.New())
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--url", s.server.URL, "--token", s.token}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *RegistryctlSuite) TestMintTransferAndRead() {
	out, err := s.run("mint",
		"--uri", "ipfs://design12345",
		"--description", "desc",
		"--license", "MIT License 123",
		"--royalty-recipient", bob.String(),
		"--royalty-bps", "500",
	)
	s.Require().NoError(err)
	s.JSONEq(`{"token_id": 1}`, out)

	_, err = s.run("transfer", "1", bob.String())
	s.Require().NoError(err)

	out, err = s.run("balance", bob.String())
	s.Require().NoError(err)
	var owner handler.OwnerResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &owner))
	s.Equal(1, owner.Balance)

	out, err = s.run("token", "1")
	s.Require().NoError(err)
	var token handler.TokenResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &token))
	s.True(token.Found)
	s.Equal(bob, *token.Owner)

	out, err = s.run("token", "42")
	s.Require().NoError(err)
	s.JSONEq(`{"found": false}`, out)
}

func (s *RegistryctlSuite) TestRejectionSurfacesCode() {
	_, err := s.run("transfer", "999", bob.String())
	s.Require().Error(err)

	var apiErr *APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(102, apiErr.Code)
	s.Equal("not_found", apiErr.Category)
}

func (s *RegistryctlSuite) TestPauseAndStatus() {
	out, err := s.run("pause")
	s.Require().NoError(err)
	s.JSONEq(`{"paused": true}`, out)

	out, err = s.run("status")
	s.Require().NoError(err)
	var status handler.StatusResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &status))
	s.True(status.Paused)
	s.Equal(admin, status.Admin)

	_, err = s.run("unpause")
	s.NoError(err)
}

func (s *RegistryctlSuite) TestIssueToken() {
	s.Run("signs a token the server accepts", func() {
		out, err := s.run("--key", signingKey, "issue-token", "--caller", admin.String())
		s.Require().NoError(err)

		caller, err := jwttoken.NewCallerValidator(jwttoken.NewJWTService(signingKey, "atelier", "atelier-registry")).
			ValidateCaller(strings.TrimSpace(out))
		s.Require().NoError(err)
		s.Equal(admin, caller)
	})

	s.Run("reads the key from the environment", func() {
		s.T().Setenv("REGISTRYCTL_KEY", signingKey)
		_, err := s.run("issue-token", "--caller", admin.String())
		s.NoError(err)
	})

	s.Run("takes the lifetime from CALLER_TOKEN_TTL", func() {
		s.T().Setenv("CALLER_TOKEN_TTL", "2m")
		out, err := s.run("--key", signingKey, "issue-token", "--caller", admin.String())
		s.Require().NoError(err)

		claims, err := jwttoken.NewJWTService(signingKey, "atelier", "atelier-registry").
			ValidateToken(strings.TrimSpace(out))
		s.Require().NoError(err)
		s.Equal(2*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	})

	s.Run("requires a key", func() {
		_, err := s.run("issue-token", "--caller", admin.String())
		s.ErrorContains(err, "REGISTRYCTL_KEY")
	})
}
