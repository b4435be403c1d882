package cmd

import (
	"time"

	"github.com/caarlos0/duration"
	"github.com/spf13/pflag"
)

var _ pflag.Value = (*durationFlag)(nil)

// durationFlag accepts extended duration units such as d and w on top of
// the standard time.ParseDuration ones.
type durationFlag struct {
	value *time.Duration
}

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return &durationFlag{value: p}
}

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	if err != nil {
		return err //nolint:wrapcheck
	}
	*d.value = v
	return nil
}

func (d *durationFlag) String() string {
	if d.value == nil || *d.value == 0 {
		return ""
	}
	return d.value.String()
}

func (d *durationFlag) Type() string {
	return "duration"
}
