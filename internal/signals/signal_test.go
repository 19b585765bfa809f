package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignal_NotifyInAttachOrder(t *testing.T) {
	var s Signal[int]
	var got []string
	s.Attach(func(int) { got = append(got, "a") })
	s.Attach(func(int) { got = append(got, "b") })

	s.Notify(1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSignal_Detach(t *testing.T) {
	var s Signal[int]
	calls := 0
	detach := s.Attach(func(int) { calls++ })

	s.Notify(1)
	detach()
	s.Notify(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Len())
}

func TestSignal_DetachDuringNotify(t *testing.T) {
	var s Signal[int]
	calls := 0
	var detach func()
	detach = s.Attach(func(int) {
		calls++
		detach()
	})
	s.Attach(func(int) { calls++ })

	s.Notify(1)
	s.Notify(2)

	assert.Equal(t, 3, calls)
}

func TestSignal_Block(t *testing.T) {
	var s Signal[string]
	var got []string
	s.Attach(func(e string) { got = append(got, e) })

	unblock := s.Block()
	s.Notify("hidden")
	unblock()
	unblock()
	s.Notify("shown")

	assert.Equal(t, []string{"shown"}, got)
}
