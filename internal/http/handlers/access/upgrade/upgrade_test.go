package upgrade

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	services "github.com/magabrotheeeer/ventures-access/internal/services/subscription"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Upgrade(ctx context.Context, userUID, target string, paymentAmount *float64) (models.AccessDescriptor, error) {
	args := m.Called(ctx, userUID, target, paymentAmount)
	return args.Get(0).(models.AccessDescriptor), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func amountIs(v float64) any {
	return mock.MatchedBy(func(p *float64) bool { return p != nil && *p == v })
}

func TestUpgradeHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "upgraded to starter",
			body: `{"tier":"client_starter","payment_amount":222}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", "client_starter", amountIs(222)).
					Return(models.AccessDescriptor{Tier: tiers.ClientStarter, IsPaying: true}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"tier":"client_starter"`,
		},
		{
			name:           "invalid json",
			body:           `{`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "missing amount",
			body:           `{"tier":"user"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field PaymentAmount is a required field`,
		},
		{
			name:           "negative amount",
			body:           `{"tier":"user","payment_amount":-5}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field PaymentAmount must be at least 0`,
		},
		{
			name: "unknown tier",
			body: `{"tier":"platinum","payment_amount":1}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", "platinum", amountIs(1)).
					Return(models.AccessDescriptor{}, services.ErrUnknownTier)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `unknown tier`,
		},
		{
			name: "not on upgrade path",
			body: `{"tier":"admin","payment_amount":1}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", "admin", amountIs(1)).
					Return(models.AccessDescriptor{}, services.ErrNotOnUpgradePath)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `tier is not an upgrade option`,
		},
		{
			name: "underpaid",
			body: `{"tier":"client_pro","payment_amount":499.99}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", "client_pro", amountIs(499.99)).
					Return(models.AccessDescriptor{}, services.ErrUpgradeRejected)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `payment amount is insufficient`,
		},
		{
			name: "storage error",
			body: `{"tier":"user","payment_amount":17.99}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", "user", amountIs(17.99)).
					Return(models.AccessDescriptor{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not upgrade`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/access/upgrade", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
