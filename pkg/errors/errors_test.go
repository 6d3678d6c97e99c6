package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodesPropagateThroughWrap(t *testing.T) {
	base := NotConfigured("N8N webhook URL")
	wrapped := Wrap(base, "send emergency_alert")
	outer := fmt.Errorf("escalate: %w", wrapped)

	assert.Equal(t, CodeNotConfigured, GetCode(outer))
	assert.True(t, IsCode(outer, CodeNotConfigured))
	assert.False(t, IsCode(outer, CodeUpstream))
	assert.Equal(t, "send emergency_alert: N8N webhook URL is not configured", wrapped.Error())
	assert.True(t, stderrors.Is(outer, base))
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Upstream(cause, "elevenlabs")

	assert.Equal(t, CodeUpstream, GetCode(err))
	assert.Equal(t, cause, Cause(err))
	assert.Nil(t, Upstream(nil, "x"))
	assert.Nil(t, Wrap(nil, "x"))
}

func TestWithContextDoesNotMutate(t *testing.T) {
	e := WithCode(CodeInvalidInput, "bad vitals")
	e2 := e.WithContext("field", "heartRate")

	assert.Empty(t, e.Context)
	assert.Equal(t, []KeyValue{{Key: "field", Value: "heartRate"}}, e2.Context)
	assert.Equal(t, "bad vitals", fmt.Sprintf("%v", e2))
}
