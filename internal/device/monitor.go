package device

import (
	"fmt"
	"sync"
	"time"
)

// backoffCycleDivisor reduces retry frequency once a device has exhausted
// its attempt budget: only every Nth poll cycle still attempts.
const backoffCycleDivisor = 5

// ReconnectFunc attempts to re-establish one device's connection. A nil
// return means connected. Panics are recovered and treated as errors.
type ReconnectFunc func() error

// Monitor polls the registry on a fixed interval and drives reconnection
// for registered device types. A reconnect is attempted only when the
// device is DISCONNECTED or ERROR; once the consecutive-attempt counter
// reaches MaxAttempts the monitor backs off to every fifth cycle.
type Monitor struct {
	registry    *Registry
	interval    time.Duration
	maxAttempts int
	logger      Logger

	mu         sync.Mutex
	reconnects map[Type]ReconnectFunc
	backoff    map[Type]int // cycle counter while a device is in backoff

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  bool
}

// NewMonitor creates a device monitor over the registry.
func NewMonitor(registry *Registry, interval time.Duration, maxAttempts int) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = 10
	}
	return &Monitor{
		registry:    registry,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      noopLogger{},
		reconnects:  make(map[Type]ReconnectFunc),
		backoff:     make(map[Type]int),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// SetLogger sets the logger for the monitor. Call before Start; the poll
// loop reads the logger without taking the lock.
func (m *Monitor) SetLogger(logger Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// RegisterReconnect registers the reconnect function for a device type,
// registering the type with the registry if needed.
func (m *Monitor) RegisterReconnect(deviceType Type, fn ReconnectFunc) {
	m.registry.Register(deviceType)

	m.mu.Lock()
	m.reconnects[deviceType] = fn
	m.mu.Unlock()
}

// Start launches the polling loop. Calling Start twice is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run()
}

// Stop terminates the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	m.stopOnce.Do(func() { close(m.stop) })
	if started {
		<-m.done
	}
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("device monitor started",
		"interval", m.interval,
		"max_attempts", m.maxAttempts,
	)

	for {
		select {
		case <-m.stop:
			m.logger.Info("device monitor stopped")
			return
		case <-ticker.C:
			m.checkAll()
		}
	}
}

// checkAll runs one poll cycle over every registered reconnect function.
func (m *Monitor) checkAll() {
	m.mu.Lock()
	pending := make(map[Type]ReconnectFunc, len(m.reconnects))
	for t, fn := range m.reconnects {
		pending[t] = fn
	}
	m.mu.Unlock()

	for deviceType, fn := range pending {
		m.checkOne(deviceType, fn)
	}
}

// checkOne attempts reconnection for a single device if it is due.
func (m *Monitor) checkOne(deviceType Type, fn ReconnectFunc) {
	status, ok := m.registry.Status(deviceType)
	if !ok {
		return
	}

	if status.State != StateDisconnected && status.State != StateError {
		m.mu.Lock()
		delete(m.backoff, deviceType)
		m.mu.Unlock()
		return
	}

	if status.ReconnectAttempts >= m.maxAttempts {
		m.mu.Lock()
		m.backoff[deviceType]++
		due := m.backoff[deviceType]%backoffCycleDivisor == 0
		m.mu.Unlock()
		if !due {
			return
		}
	}

	attempt := m.registry.RecordAttempt(deviceType)
	m.registry.SetConnecting(deviceType)

	m.logger.Debug("attempting device reconnect",
		"device", deviceType,
		"attempt", attempt,
	)

	if err := m.attempt(fn); err != nil {
		m.registry.SetError(deviceType, err.Error())
		return
	}

	m.mu.Lock()
	delete(m.backoff, deviceType)
	m.mu.Unlock()
	m.registry.SetConnected(deviceType)
}

// attempt runs a reconnect function with panic recovery.
func (m *Monitor) attempt(fn ReconnectFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reconnect panic: %v", rec)
		}
	}()
	return fn()
}
