package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("confirm: %w", SlotUnavailable("", nil))

	assert.True(t, stderrors.Is(err, SlotUnavailableError))
	assert.False(t, stderrors.Is(err, NotFoundError))
	assert.Equal(t, ErrSlotUnavailable, CodeOf(err))
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("plain")))
}

func TestStatusCodes(t *testing.T) {
	cases := map[*AppError]int{
		SlotUnavailable("", nil):     http.StatusConflict,
		NotFound("booking", nil):     http.StatusNotFound,
		AlreadyCanceled(nil):         http.StatusConflict,
		NotEligible("too late", nil): http.StatusConflict,
		BadRequest("bad", nil):       http.StatusBadRequest,
		Persistence(nil):             http.StatusServiceUnavailable,
		Internal(nil):                http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.StatusCode(), err.Message)
	}
}

func TestPersistenceHidesCause(t *testing.T) {
	cause := stderrors.New("pq: connection refused")
	err := Persistence(cause)

	assert.NotContains(t, err.Message, "pq")
	assert.ErrorIs(t, err, cause)
}
