package safe_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/utils/safe"
)

type failingCloser struct{ closed bool }

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("close failed")
}

type trackedBody struct {
	*strings.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestClose(t *testing.T) {
	c := &failingCloser{}
	safe.Close(context.Background(), c)
	gt.Bool(t, c.closed).True()

	safe.Close(context.Background(), nil)
}

func TestDrainClose(t *testing.T) {
	body := &trackedBody{Reader: strings.NewReader(`{"trade_ads":[]}`)}
	safe.DrainClose(context.Background(), body)

	gt.Bool(t, body.closed).True()
	gt.Number(t, body.Len()).Equal(0)

	safe.DrainClose(context.Background(), nil)
}
