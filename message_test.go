package ripple

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageTypeIDIsDenseAndStable(t *testing.T) {
	mt := &MessageType{Name: "Custom"}
	id := mt.ID()
	assert.Greater(t, id, uint64(0))
	assert.Equal(t, id, mt.ID(), "ID must not change across repeated calls")
}

func TestMessageTypeIDsAreDistinctPerValue(t *testing.T) {
	a := &MessageType{Name: "A"}
	b := &MessageType{Name: "B"}
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestReservedMessageTypesAreAlreadyRegistered(t *testing.T) {
	for _, mt := range []*MessageType{typeStart, typeStop, typeStopped, typeFailure, typeUser, typeInit, typeClose, typeClosed, typeDone} {
		assert.Greater(t, mt.ID(), uint64(0), "%s should have been assigned an id by init()", mt.Name)
	}
}

func TestNewMessageAssignsATraceID(t *testing.T) {
	from := &PID{id: 1, name: "sender"}
	msg := newMessage(from, typeUser, "payload")
	assert.NotEmpty(t, msg.TraceID())
	assert.Equal(t, from, msg.From)
	assert.Equal(t, "payload", msg.Payload)
}

func TestNilMessageTraceIDIsEmpty(t *testing.T) {
	var msg *Message
	assert.Equal(t, "", msg.TraceID())
}
