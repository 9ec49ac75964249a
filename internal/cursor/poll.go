package cursor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often Run polls the position.
const DefaultInterval = 50 * time.Millisecond

// Run polls c until ctx is done or the position source fails, calling
// onChange with the new index each time it moves. A failing position source
// ends the loop without an error; the cause stays available via c.Err().
func Run(ctx context.Context, c *Cursor, interval time.Duration, onChange func(index int)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed := c.Update()
			if err := c.Err(); err != nil {
				log.Debug().Err(err).Msg("Position source gone, stopping lyrics poll")
				return nil
			}
			if changed && onChange != nil {
				onChange(c.Index())
			}
		}
	}
}
