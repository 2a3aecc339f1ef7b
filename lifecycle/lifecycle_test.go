package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kusinahub/kusina-api/models"
)

func TestInitialStatus(t *testing.T) {
	status, err := InitialStatus(models.PaymentPayAtStore)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingConfirmation, status)

	status, err = InitialStatus(models.PaymentGCash)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, status)

	_, err = InitialStatus("Cheque")
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
}

func TestValidate(t *testing.T) {
	legal := []struct{ from, to string }{
		{StatusPendingConfirmation, StatusAccepted},
		{StatusPendingConfirmation, StatusDeclined},
		{StatusAccepted, StatusPreparing},
		{StatusPreparing, StatusReady},
		{StatusReady, StatusCompleted},
	}
	for _, tc := range legal {
		assert.NoError(t, Validate(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct{ from, to string }{
		{StatusPendingConfirmation, StatusReady},
		{StatusPendingConfirmation, StatusPreparing},
		{StatusPendingConfirmation, StatusCompleted},
		{StatusAccepted, StatusReady},
		{StatusAccepted, StatusDeclined},
		{StatusPreparing, StatusCompleted},
		{StatusPreparing, StatusAccepted},
		{StatusReady, StatusPreparing},
		{StatusCompleted, StatusReady},
		{StatusCompleted, StatusPendingConfirmation},
		{StatusDeclined, StatusAccepted},
		{StatusDeclined, StatusPendingConfirmation},
		{"Lost", StatusAccepted},
	}
	for _, tc := range illegal {
		assert.ErrorIs(t, Validate(tc.from, tc.to), ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionDeclineRequiresReason(t *testing.T) {
	err := Transition(StatusPendingConfirmation, StatusDeclined, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	err = Transition(StatusPendingConfirmation, StatusDeclined, "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	assert.NoError(t, Transition(StatusPendingConfirmation, StatusDeclined, "Out of stock"))
}

func TestTransitionRejectsIllegalMoveBeforeReasonCheck(t *testing.T) {
	err := Transition(StatusPreparing, StatusDeclined, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusDeclined))
	assert.False(t, IsTerminal(StatusPendingConfirmation))
	assert.False(t, IsTerminal(StatusPreparing))
	assert.False(t, IsTerminal(StatusReady))
	assert.False(t, IsTerminal(StatusAccepted))
}

func TestKnown(t *testing.T) {
	for _, status := range []string{
		StatusPendingConfirmation, StatusAccepted, StatusDeclined,
		StatusPreparing, StatusReady, StatusCompleted,
	} {
		assert.True(t, Known(status), status)
	}
	assert.False(t, Known("Shipped"))
	assert.False(t, Known(""))
}
