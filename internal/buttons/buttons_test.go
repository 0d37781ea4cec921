package buttons

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1_700_000_000, 0)

func ms(n int) time.Time { return t0.Add(time.Duration(n) * time.Millisecond) }

// levelsFunc returns the raw electrical levels at elapsed milliseconds.
type levelsFunc func(ms int) []bool

func released(n int) []bool {
	l := make([]bool, n)
	for i := range l {
		l[i] = true
	}
	return l
}

// pressWindow holds button idx low between from and to (ms, half-open).
func pressWindow(n, idx, from, to int) levelsFunc {
	return func(t int) []bool {
		l := released(n)
		if t >= from && t < to {
			l[idx] = false
		}
		return l
	}
}

// run polls every 5 ms, like the control loop does, and collects events.
func run(d *Debouncer, from, to int, levels levelsFunc) []Event {
	var events []Event
	for t := from; t <= to; t += 5 {
		events = append(events, d.Poll(levels(t), ms(t))...)
	}
	return events
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "short", Short.String())
	assert.Equal(t, "long", Long.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}

func TestShortPress(t *testing.T) {
	d := NewDebouncer(4, DefaultTiming(), t0)
	events := run(d, 0, 3000, pressWindow(4, 2, 1000, 1200))
	assert.Equal(t, []Event{{Index: 2, Kind: Short}}, events)
}

func TestLongPressSuppressesShort(t *testing.T) {
	d := NewDebouncer(4, DefaultTiming(), t0)
	events := run(d, 0, 4000, pressWindow(4, 0, 1000, 2500))
	assert.Equal(t, []Event{{Index: 0, Kind: Long}}, events)
}

func TestLongPressFiresWhileHeld(t *testing.T) {
	d := NewDebouncer(1, DefaultTiming(), t0)
	hold := pressWindow(1, 0, 1000, 1_000_000)

	assert.Empty(t, run(d, 0, 2000, hold), "not yet held for 1000 ms after the debounced press")
	assert.Equal(t, []Event{{Index: 0, Kind: Long}}, run(d, 2005, 2100, hold))
	assert.Empty(t, run(d, 2105, 5000, hold), "Long fires once per press")
	assert.True(t, d.Pressed(0))
}

func TestSettlePeriodIgnoresPresses(t *testing.T) {
	d := NewDebouncer(4, DefaultTiming(), t0)
	events := run(d, 0, 2000, pressWindow(4, 1, 100, 300))
	assert.Empty(t, events)
}

func TestPressHeldThroughSettleIsIgnored(t *testing.T) {
	d := NewDebouncer(4, DefaultTiming(), t0)
	events := run(d, 0, 3000, pressWindow(4, 3, 0, 900))
	assert.Empty(t, events)
}

func TestPrimeSeedsLevels(t *testing.T) {
	d := NewDebouncer(2, DefaultTiming(), t0)
	d.Prime([]bool{false, true})
	// still held after settle: no edge, no event
	events := run(d, 500, 1500, func(int) []bool { return []bool{false, true} })
	assert.Empty(t, events)
	assert.False(t, d.Pressed(0))
}

func TestBounceFasterThanDebounceNeverChangesLevel(t *testing.T) {
	for period := 10; period < 20; period++ {
		for phase := 0; phase < period; phase++ {
			d := NewDebouncer(1, DefaultTiming(), t0)
			bouncing := func(t int) []bool {
				if t < 1000 {
					return []bool{true}
				}
				return []bool{((t-1000+phase)/period)%2 == 1}
			}
			var events []Event
			for tm := 0; tm <= 4000; tm += 5 {
				events = append(events, d.Poll(bouncing(tm), ms(tm))...)
				require.False(t, d.Pressed(0), "period=%d phase=%d t=%d", period, phase, tm)
			}
			require.Empty(t, events, "period=%d phase=%d", period, phase)
		}
	}
}

func TestBounceThenStablePress(t *testing.T) {
	d := NewDebouncer(1, DefaultTiming(), t0)
	levels := func(t int) []bool {
		switch {
		case t >= 1000 && t < 1060:
			return []bool{(t/15)%2 == 0}
		case t >= 1060 && t < 1300:
			return []bool{false}
		default:
			return []bool{true}
		}
	}
	events := run(d, 0, 3000, levels)
	assert.Equal(t, []Event{{Index: 0, Kind: Short}}, events)
}

func TestPollIsRateLimited(t *testing.T) {
	d := NewDebouncer(1, DefaultTiming(), t0)
	d.Poll([]bool{true}, ms(1000))
	d.Poll([]bool{false}, ms(1005)) // inside the poll interval, dropped
	d.Poll([]bool{false}, ms(1010)) // edge recorded here
	d.Poll([]bool{false}, ms(1020))
	d.Poll([]bool{false}, ms(1030))
	assert.False(t, d.Pressed(0), "stable for only 20 ms")
	d.Poll([]bool{false}, ms(1040))
	assert.True(t, d.Pressed(0))
}

func TestButtonsAreIndependent(t *testing.T) {
	d := NewDebouncer(4, DefaultTiming(), t0)
	levels := func(t int) []bool {
		l := released(4)
		if t >= 1000 && t < 1150 {
			l[0] = false
		}
		if t >= 1000 && t < 2600 {
			l[3] = false
		}
		return l
	}
	events := run(d, 0, 4000, levels)
	assert.ElementsMatch(t, []Event{{Index: 0, Kind: Short}, {Index: 3, Kind: Long}}, events)
}

func TestRepeatedShortPresses(t *testing.T) {
	d := NewDebouncer(1, DefaultTiming(), t0)
	levels := func(t int) []bool {
		if (t >= 1000 && t < 1100) || (t >= 1400 && t < 1500) {
			return []bool{false}
		}
		return []bool{true}
	}
	events := run(d, 0, 3000, levels)
	assert.Equal(t, []Event{{Index: 0, Kind: Short}, {Index: 0, Kind: Short}}, events)
}

func TestShortLevelsSliceIsTolerated(t *testing.T) {
	d := NewDebouncer(4, DefaultTiming(), t0)
	events := run(d, 0, 2000, func(t int) []bool {
		if t >= 1000 && t < 1200 {
			return []bool{false}
		}
		return []bool{true}
	})
	assert.Equal(t, []Event{{Index: 0, Kind: Short}}, events)
	assert.False(t, d.Pressed(5))
}
