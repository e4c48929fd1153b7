package inapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalChecker(t *testing.T) {
	now := testNow
	checker := NewIntervalChecker(30 * time.Second).WithNow(func() time.Time { return now })

	assert.True(t, checker.IsOkToShowNow(nil), "nothing shown yet")

	assert.True(t, checker.ReadyAt().IsZero())

	checker.RecordShown()
	assert.Equal(t, testNow.Add(30*time.Second), checker.ReadyAt())
	assert.False(t, checker.IsOkToShowNow(nil))

	now = now.Add(29 * time.Second)
	assert.False(t, checker.IsOkToShowNow(nil))

	now = now.Add(time.Second)
	assert.True(t, checker.IsOkToShowNow(nil))
}

func TestIntervalCheckerZeroIntervalAlwaysAllows(t *testing.T) {
	checker := NewIntervalChecker(0)
	checker.RecordShown()
	assert.True(t, checker.IsOkToShowNow(nil))
}

func TestIntervalCheckerRestoreKeepsNewest(t *testing.T) {
	now := testNow
	checker := NewIntervalChecker(time.Minute).WithNow(func() time.Time { return now })

	checker.Restore(testNow.Add(-30 * time.Second))
	assert.False(t, checker.IsOkToShowNow(nil), "restored show is inside the interval")
	assert.Equal(t, testNow.Add(30*time.Second), checker.ReadyAt())

	checker.Restore(testNow.Add(-time.Hour))
	assert.Equal(t, testNow.Add(30*time.Second), checker.ReadyAt(), "older restore is ignored")

	now = now.Add(30 * time.Second)
	assert.True(t, checker.IsOkToShowNow(nil))
}
