package ripple_test

import (
	"log"
	"testing"

	"github.com/delaneyj/ripple"
	"github.com/stretchr/testify/assert"
)

func TestBasicUsage(t *testing.T) {
	rs := ripple.CreateReactiveSystem(noErr(t))
	count := ripple.Signal(rs, 1)
	doubleCount := ripple.Computed(rs, func(oldValue int) int {
		return count.Value() * 2
	})

	e := ripple.Effect(rs, func() error {
		log.Printf("Count is: %d", count.Value())
		return nil
	})
	defer e.Stop()

	assert.Equal(t, 2, doubleCount.Value())
	count.SetValue(2)
	assert.Equal(t, 4, doubleCount.Value())
}

func TestBasicScope(t *testing.T) {
	rs := ripple.CreateReactiveSystem(noErr(t))
	count := ripple.Signal(rs, 1)

	scope := ripple.NewScope(rs)
	assert.NoError(t, scope.Run(func() error {
		ripple.Effect(rs, func() error {
			log.Printf("Count in scope: %d", count.Value())
			return nil
		}) // Console: Count in scope: 1
		count.SetValue(2) // Console: Count in scope: 2

		return nil
	}))

	scope.Stop()
	count.SetValue(3) // No console output
}

// raw Dep usage: the entry points an interception layer would call
func TestBareDepEndToEnd(t *testing.T) {
	rs := ripple.CreateReactiveSystem(noErr(t))

	quantity := 3
	price := 100
	quantityDep := ripple.NewDep(rs)

	total := 0
	ripple.Effect(rs, func() error {
		quantityDep.Track()
		total = price * quantity
		return nil
	})

	assert.Equal(t, 300, total)

	quantity = 10
	quantityDep.Trigger()
	assert.Equal(t, 1000, total)
}
