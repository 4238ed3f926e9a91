package daemon

import (
	"context"
	"strings"
	"sync"

	"log/slog"

	"github.com/pilebones/go-udev/netlink"

	"vigil/internal/config"
	"vigil/internal/logging"
)

// cameraMonitor listens for udev netlink events on the video4linux subsystem
// so the daemon notices a camera appearing or disappearing without polling
// /dev. Cameras are how frames exist at all; losing one silently would look
// exactly like a calm room.
type cameraMonitor struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler func(ctx context.Context, device string, attached bool)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newCameraMonitor creates a monitor for camera hotplug events.
func newCameraMonitor(
	cfg *config.Config,
	logger *slog.Logger,
	handler func(ctx context.Context, device string, attached bool),
) *cameraMonitor {
	if cfg == nil {
		return nil
	}
	return &cameraMonitor{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "camera-monitor"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events.
func (m *cameraMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera hotplug detection unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "a lost camera will not raise an alert"),
		)
		return nil // Non-fatal - analysis continues without hotplug awareness
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Pass quit channel to goroutine to avoid reading m.quit without lock
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("camera monitor started",
		logging.String(logging.FieldEventType, "camera_monitor_started"),
	)

	return nil
}

// Stop shuts down the camera monitor.
func (m *cameraMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}

	m.running = false

	m.logger.Info("camera monitor stopped",
		logging.String(logging.FieldEventType, "camera_monitor_stopped"),
	)
}

// Running reports whether the camera monitor is active.
func (m *cameraMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// monitorLoop reads netlink events and forwards camera hotplug to the handler.
func (m *cameraMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("camera monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "camera_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera hotplug detection may be affected"),
			)
		}
	}
}

// buildMatcher creates a matcher for camera hotplug events.
// Matches: SUBSYSTEM=video4linux, ACTION=add|remove
func (m *cameraMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

// handleEvent processes a matched uevent.
func (m *cameraMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := m.extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	attached := uevent.Action == netlink.ADD

	m.logger.Info("camera hotplug event",
		logging.String(logging.FieldEventType, "camera_hotplug"),
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)),
	)

	if m.handler == nil {
		return
	}
	m.handler(ctx, devname, attached)
}

// extractDeviceName gets the device path from a uevent.
func (m *cameraMonitor) extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			return "/dev/" + devname
		}
		return devname
	}

	// Try to construct from DEVPATH (e.g., /devices/pci.../video4linux/video0)
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}

	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
