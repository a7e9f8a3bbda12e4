// Package barrier drives the gate actuator over its camera-style CGI
// interface. Commands are digest-authenticated HTTP GETs against the device
// at the booth's configured address.
package barrier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/icholy/digest"
)

const (
	// pulseHold is how long the alarm-out relay stays engaged before it is
	// released again; the gate latches open on the rising edge.
	pulseHold = 1 * time.Second

	defaultTimeout = 5 * time.Second
)

// Config carries the actuator credentials shared by all booth barriers.
type Config struct {
	Username string
	Password string
	Timeout  time.Duration
}

// Driver issues open and close sequences to barrier actuators.
type Driver struct {
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewDriver builds a driver with a digest-authenticating HTTP client.
func NewDriver(cfg Config) *Driver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Driver{
		client: &http.Client{
			Timeout: timeout,
			Transport: &digest.Transport{
				Username: cfg.Username,
				Password: cfg.Password,
			},
		},
		sleep: sleepCtx,
	}
}

// Pulse opens the barrier: engage the relay, hold, release. The hold runs
// even if the caller's context has a short deadline, so a released relay is
// only skipped when the engage itself failed.
func (d *Driver) Pulse(ctx context.Context, ipAddress string) error {
	if err := d.setRelay(ctx, ipAddress, 1); err != nil {
		return fmt.Errorf("barrier engage at %s: %w", ipAddress, err)
	}
	if err := d.sleep(ctx, pulseHold); err != nil {
		// Release regardless; a latched relay keeps the gate motor driven.
		d.setRelay(context.Background(), ipAddress, 0)
		return err
	}
	if err := d.setRelay(ctx, ipAddress, 0); err != nil {
		return fmt.Errorf("barrier release at %s: %w", ipAddress, err)
	}
	return nil
}

// Close forces the strobe down, used by the booth maintenance surface.
func (d *Driver) Close(ctx context.Context, ipAddress string) error {
	url := fmt.Sprintf("http://%s/cgi-bin/trafficSnap.cgi?action=closeStrobe&channel=1", ipAddress)
	if err := d.get(ctx, url); err != nil {
		return fmt.Errorf("barrier close at %s: %w", ipAddress, err)
	}
	return nil
}

func (d *Driver) setRelay(ctx context.Context, ipAddress string, mode int) error {
	url := fmt.Sprintf(
		"http://%s/cgi-bin/configManager.cgi?action=setConfig&AlarmOut[1].Mode=%d&AlarmOut[0].Name=port1",
		ipAddress, mode)
	return d.get(ctx, url)
}

func (d *Driver) get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("actuator returned status %d", resp.StatusCode)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
