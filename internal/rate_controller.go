// Credit based rate limit controller.
//
// The credit is a numerical quantity replenished periodically, at intervals T,
// with a constant number N. The replenished value may by capped to a max M>=N,
// or it may be unbound. The value R=N/T represents the target rate limit and
// M-N represents the burst limit.
//
// A user in need of n resources should request a credit ==/<= n before
// proceeding (the user may specify an interval nMin..n, nMin <= n). If credit
// is available the user receives a value c within the requested interval and it
// then should use no more than c.
//
// Use case here: simhw.UART's transmit path, to reproduce a real 16550's
// fixed baud-rate back-pressure instead of printing instantly.

package vmi_internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	CREDIT_UNLIMITED = -1
)

// The actual implementation:
type Credit struct {
	ctx            context.Context
	cancelFunc     context.CancelFunc
	wg             *sync.WaitGroup
	cond           *sync.Cond
	current        int
	maxValue       int
	replenishValue int
	replenishInt   time.Duration
}

func NewCredit(replenishValue, maxValue int, replenishInt time.Duration) *Credit {

	ctx, cancelFunc := context.WithCancel(context.Background())
	if maxValue > 0 {
		maxValue = max(replenishValue, maxValue)
	}

	c := &Credit{
		ctx:            ctx,
		cancelFunc:     cancelFunc,
		wg:             &sync.WaitGroup{},
		cond:           sync.NewCond(&sync.Mutex{}),
		maxValue:       maxValue,
		replenishValue: replenishValue,
		replenishInt:   replenishInt,
	}
	c.startReplenish()
	return c
}

func (c *Credit) startReplenish() {
	c.wg.Add(1)
	ticker := time.NewTicker(c.replenishInt)
	c.cond.L.Lock()
	c.current = c.replenishValue
	c.cond.Broadcast()
	c.cond.L.Unlock()
	go func() {
		defer c.wg.Done()
		for run := true; run; {
			select {
			case <-c.ctx.Done():
				ticker.Stop()
				c.cond.L.Lock()
				c.current = CREDIT_UNLIMITED
				run = false
			case <-ticker.C:
				c.cond.L.Lock()
				c.current += c.replenishValue
				if c.maxValue > 0 && c.current > c.maxValue {
					c.current = c.maxValue
				}
			}
			c.cond.Broadcast()
			c.cond.L.Unlock()
		}
	}()
}

func (c *Credit) StopReplenish() {
	c.cancelFunc()
}

func (c *Credit) StopReplenishWait() {
	c.cancelFunc()
	c.wg.Wait()
}

func (c *Credit) GetCredit(desired, minAcceptable int) (got int) {
	if minAcceptable < 0 || minAcceptable > desired {
		minAcceptable = desired
	}

	c.cond.L.Lock()
	defer c.cond.L.Unlock()

	for c.current >= 0 && c.current < minAcceptable {
		c.cond.Wait()
	}

	if c.current < 0 {
		got = desired
	} else {
		got = min(desired, c.current)
		c.current -= got
	}
	return
}

func (c *Credit) String() string {
	if c == nil {
		return fmt.Sprintf("%v", nil)
	}
	return fmt.Sprintf(
		"%T{replenishValue=%d, replenishInt=%s, max=%d}",
		c, c.replenishValue, c.replenishInt, c.maxValue,
	)
}
