package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	jwttoken "smpd/internal/jwt_token"
	migservice "smpd/internal/migration/service"
	migstore "smpd/internal/migration/store"
	sgservice "smpd/internal/servicegroup/service"
	sgstore "smpd/internal/servicegroup/store"
	"smpd/internal/sml"
	"smpd/internal/sml/mocks"
	"smpd/pkg/domain"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const testParticipant = "iso6523-actorid-upis::9915:handler-test"

type HandlerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockClient *mocks.MockMigrationClient
	groups     *sgservice.Manager
	router     http.Handler
	token      string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockClient = mocks.NewMockMigrationClient(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.groups = sgservice.NewManager(sgstore.NewInMemory(), sml.NoOpHook{},
		sgservice.WithLogger(logger))
	migrations := migservice.NewCoordinator(migstore.NewInMemory(), s.mockClient, s.groups, "SMP-TEST-001",
		migservice.WithLogger(logger))

	jwtService := jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")
	token, err := jwtService.GenerateAccessToken("alice", time.Hour)
	s.Require().NoError(err)
	s.token = token

	handler := NewHandler(s.groups, migrations, jwttoken.NewJWTServiceAdapter(jwtService), logger)
	s.router = NewRouter(handler)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, target string, body any, authorized bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func participantPath(prefix string) string {
	return prefix + "/" + url.PathEscape(testParticipant)
}

func (s *HandlerSuite) TestServiceGroupLifecycle() {
	w := s.do(http.MethodPost, "/participants",
		createServiceGroupRequest{ParticipantID: testParticipant}, true)
	s.Require().Equal(http.StatusCreated, w.Code)
	created := s.decode(w)
	s.Equal(testParticipant, created["participant_id"])
	s.Equal("alice", created["owner"])

	w = s.do(http.MethodGet, participantPath("/participants"), nil, false)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("alice", s.decode(w)["owner"])

	ext := "<Extension/>"
	w = s.do(http.MethodPut, participantPath("/participants"),
		updateServiceGroupRequest{Owner: "bob", Extension: &ext}, true)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["changed"])

	w = s.do(http.MethodGet, "/participants?owner=bob", nil, true)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["service_groups"], 1)

	w = s.do(http.MethodDelete, participantPath("/participants"), nil, true)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["changed"])

	// Repeated delete on the same id is a no-op.
	w = s.do(http.MethodDelete, participantPath("/participants"), nil, true)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["changed"])
}

func (s *HandlerSuite) TestServiceGroupErrors() {
	s.Run("lookup of unknown participant returns 404", func() {
		w := s.do(http.MethodGet, participantPath("/participants"), nil, false)
		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("not_found", s.decode(w)["error"])
	})

	s.Run("malformed identifier returns 400", func() {
		w := s.do(http.MethodGet, "/participants/not-an-identifier", nil, false)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("duplicate create returns 409", func() {
		req := createServiceGroupRequest{ParticipantID: testParticipant}
		w := s.do(http.MethodPost, "/participants", req, true)
		s.Require().Equal(http.StatusCreated, w.Code)

		w = s.do(http.MethodPost, "/participants", req, true)
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("mutations without a token return 401", func() {
		w := s.do(http.MethodPost, "/participants",
			createServiceGroupRequest{ParticipantID: testParticipant}, false)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *HandlerSuite) TestMigrationRoutes() {
	const key = "aB3#migrate"
	pid, err := domain.ParseParticipantIdentifier(testParticipant)
	s.Require().NoError(err)

	w := s.do(http.MethodPost, "/participants",
		createServiceGroupRequest{ParticipantID: testParticipant}, true)
	s.Require().Equal(http.StatusCreated, w.Code)

	s.Run("start outbound returns the migration key once", func() {
		s.mockClient.EXPECT().PrepareToMigrate(gomock.Any(), pid, "SMP-TEST-001").Return(key, nil)

		w := s.do(http.MethodPost, participantPath("/migrations/outbound"), nil, true)
		s.Require().Equal(http.StatusCreated, w.Code)
		resp := s.decode(w)
		s.Equal(key, resp["migration_key"])
		s.Equal("IN_PROGRESS", resp["state"])
	})

	s.Run("in-progress migrations are listable", func() {
		w := s.do(http.MethodGet, "/migrations?direction=OUTBOUND&state=IN_PROGRESS", nil, true)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Len(s.decode(w)["migrations"], 1)
	})

	s.Run("finalize removes the registration", func() {
		w := s.do(http.MethodPut, participantPath("/migrations/outbound")+"/finalize", nil, true)
		s.Require().Equal(http.StatusNoContent, w.Code)

		w = s.do(http.MethodGet, participantPath("/participants"), nil, false)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("inbound migration recreates the registration locally", func() {
		s.mockClient.EXPECT().Migrate(gomock.Any(), pid, key, "SMP-TEST-001").Return(nil)

		w := s.do(http.MethodPost, participantPath("/migrations/inbound"),
			createInboundRequest{MigrationKey: key}, true)
		s.Require().Equal(http.StatusCreated, w.Code)
		resp := s.decode(w)
		s.Equal(true, resp["service_group_created"])
		s.Equal(true, resp["migration_recorded"])

		w = s.do(http.MethodGet, participantPath("/participants"), nil, false)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("cancel without an in-progress migration returns 404", func() {
		w := s.do(http.MethodDelete, participantPath("/migrations/outbound"), nil, true)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *HandlerSuite) TestHealth() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtService := jwttoken.NewJWTService("k", "i", "a")
	handler := NewHandler(s.groups, nil, jwttoken.NewJWTServiceAdapter(jwtService), logger,
		WithHealthCheck("database", healthOK{}),
		WithSMLEnabled(true),
	)
	router := NewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	s.Require().Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("ok", resp["status"])
	s.Equal(true, resp["sml_enabled"])
}

type healthOK struct{}

func (healthOK) Health(context.Context) error { return nil }
