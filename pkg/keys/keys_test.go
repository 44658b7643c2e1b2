package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type step struct {
	at      time.Duration
	pressed bool
	want    Outcome
}

func runSteps(t *testing.T, c *Classifier, steps []step) {
	t.Helper()
	base := time.Unix(1000, 0)
	for i, s := range steps {
		got := c.Update(s.pressed, base.Add(s.at))
		assert.Equal(t, s.want, got, "step %d at %v", i, s.at)
	}
}

func TestClassifier(t *testing.T) {
	tests := []struct {
		name  string
		steps []step
	}{
		{
			name: "short press",
			steps: []step{
				{at: 0, pressed: true, want: None},
				{at: 100 * time.Millisecond, pressed: false, want: None},
				{at: 200 * time.Millisecond, pressed: false, want: None},
				{at: 400 * time.Millisecond, pressed: false, want: Short},
				{at: 500 * time.Millisecond, pressed: false, want: None},
			},
		},
		{
			name: "long press reported while held",
			steps: []step{
				{at: 0, pressed: true, want: None},
				{at: 500 * time.Millisecond, pressed: true, want: None},
				{at: 800 * time.Millisecond, pressed: true, want: Long},
				{at: 900 * time.Millisecond, pressed: true, want: None},
				{at: 1000 * time.Millisecond, pressed: false, want: None},
				{at: 2000 * time.Millisecond, pressed: false, want: None},
			},
		},
		{
			name: "double press",
			steps: []step{
				{at: 0, pressed: true, want: None},
				{at: 80 * time.Millisecond, pressed: false, want: None},
				{at: 150 * time.Millisecond, pressed: true, want: None},
				{at: 230 * time.Millisecond, pressed: false, want: Double},
				{at: 800 * time.Millisecond, pressed: false, want: None},
			},
		},
		{
			name: "bounce ignored",
			steps: []step{
				{at: 0, pressed: true, want: None},
				{at: 5 * time.Millisecond, pressed: false, want: None},
				{at: 10 * time.Millisecond, pressed: true, want: None},
				{at: 100 * time.Millisecond, pressed: false, want: None},
				{at: 450 * time.Millisecond, pressed: false, want: Short},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSteps(t, NewClassifier(Timing{}), tt.steps)
		})
	}
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	assert.Equal(t, None, q.Poll())
	assert.False(t, q.Push(None))
	assert.True(t, q.Push(Short))
	assert.True(t, q.Push(Long))
	assert.False(t, q.Push(Double))
	assert.Equal(t, uint32(1), q.Drops())
	assert.Equal(t, Short, q.Poll())
	assert.Equal(t, Long, q.Poll())
	assert.Equal(t, None, q.Poll())
}

func TestAny(t *testing.T) {
	q := NewQueue(1)
	p := Any(Never, nil, q)
	assert.Equal(t, None, p.Poll())
	q.Push(Double)
	assert.Equal(t, Double, p.Poll())
}

func TestButton(t *testing.T) {
	level := false
	now := time.Unix(0, 0)
	b := NewButton(func() bool { return level }, Timing{})
	b.Now = func() time.Time { return now }

	assert.Equal(t, None, b.Poll())
	level = true
	now = now.Add(10 * time.Millisecond)
	assert.Equal(t, None, b.Poll())
	now = now.Add(time.Second)
	assert.Equal(t, Long, b.Poll())
}
