package errors_test

import (
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "context %d", 1))

	err := apperrors.Wrapf(apperrors.ErrPersistence, "upsert %s", "a@x.com")
	require.EqualError(t, err, "upsert a@x.com: persistence failure")
	require.True(t, apperrors.Is(err, apperrors.ErrPersistence))
}

func TestProviderExchangeError(t *testing.T) {
	wrapped := fmt.Errorf("exchange: %w", &apperrors.ProviderExchangeError{Code: "invalid_grant", Description: "Bad Request"})

	var pe *apperrors.ProviderExchangeError
	require.True(t, apperrors.As(wrapped, &pe))
	require.Equal(t, "invalid_grant", pe.Code)
	require.Equal(t, "provider exchange error: invalid_grant: Bad Request", pe.Error())
	require.Equal(t, "provider exchange error: access_denied", (&apperrors.ProviderExchangeError{Code: "access_denied"}).Error())
}
