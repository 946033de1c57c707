package serverutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"sloth-wake-be/internal/repository/contract"
	"sloth-wake-be/pkg/personality"
	"sloth-wake-be/pkg/speech"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("validate x: %w", contract.ErrSessionNotFound), fiber.StatusNotFound},
		{fmt.Errorf("nudge x: %w", contract.ErrInvalidState), fiber.StatusBadRequest},
		{fmt.Errorf("validate x: %w", contract.ErrSessionReleased), fiber.StatusConflict},
		{fmt.Errorf("transcribe: %w", speech.ErrUnavailable), fiber.StatusServiceUnavailable},
		{fmt.Errorf("start: %w", personality.ErrContractViolation), fiber.StatusInternalServerError},
		{&ValidationError{Fields: map[string]string{"session_id": "is required"}}, fiber.StatusBadRequest},
		{fiber.NewError(fiber.StatusUnsupportedMediaType, "nope"), fiber.StatusUnsupportedMediaType},
		{io.ErrUnexpectedEOF, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		got, _ := StatusFor(tc.err)
		assert.Equal(t, tc.want, got, "%v", tc.err)
	}
}

func TestErrorHandlerMiddlewareWritesEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/gone", func(*fiber.Ctx) error { return contract.ErrSessionReleased })

	resp, err := app.Test(httptest.NewRequest("GET", "/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, fiber.StatusConflict, body.Code)
}

func TestValidateRequestReportsJSONFieldNames(t *testing.T) {
	type req struct {
		SessionId string `validate:"required"`
		Keyword   string `validate:"max=3"`
	}

	err := ValidateRequest(req{Keyword: "toolong"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["session_id"])
	assert.Equal(t, "must be at most 3 characters", verr.Fields["keyword"])

	assert.NoError(t, ValidateRequest(req{SessionId: "x"}))
}
