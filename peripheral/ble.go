package peripheral

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/Mana-Robotics/televoodoo-viewer/dispatch"
	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/pkg/retry"
	"github.com/Mana-Robotics/televoodoo-viewer/session"
)

// BLEDeps holds runtime dependencies for the BLE backend
type BLEDeps struct {
	Session    session.Session
	Dispatcher *dispatch.Dispatcher
	Sink       event.Sink
	Logger     *slog.Logger
}

// BLEBackend advertises the session over Bluetooth LE and surfaces
// characteristic writes to the dispatcher. The advertised local name is
// the session name; centrals discover the code out of band.
type BLEBackend struct {
	session    session.Session
	dispatcher *dispatch.Dispatcher
	sink       event.Sink
	logger     *slog.Logger

	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement

	serviceUUID   bluetooth.UUID
	charUUIDs     map[dispatch.Characteristic]bluetooth.UUID
	heartbeatChar bluetooth.Characteristic

	retryConfig retry.Config
	running     atomic.Bool
}

var _ Backend = (*BLEBackend)(nil)

// NewBLEBackend creates a BLE backend from deps
func NewBLEBackend(deps BLEDeps) *BLEBackend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "ble")
	}
	sink := deps.Sink
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	return &BLEBackend{
		session:     deps.Session,
		dispatcher:  deps.Dispatcher,
		sink:        sink,
		logger:      logger,
		adapter:     bluetooth.DefaultAdapter,
		retryConfig: retry.DefaultConfig(),
	}
}

// Initialize enables the adapter and resolves the GATT identities
func (b *BLEBackend) Initialize() error {
	if err := b.adapter.Enable(); err != nil {
		return errors.WrapTransient(errors.ErrAdapterOff, "ble", "Initialize",
			fmt.Sprintf("adapter enable: %v", err))
	}

	var err error
	b.serviceUUID, err = parseUUID(dispatch.ServiceUUID)
	if err != nil {
		return err
	}

	b.charUUIDs = make(map[dispatch.Characteristic]bluetooth.UUID, 4)
	for _, char := range []dispatch.Characteristic{
		dispatch.CharControl, dispatch.CharAuth, dispatch.CharPose, dispatch.CharHeartbeat,
	} {
		if b.charUUIDs[char], err = parseUUID(char.UUID()); err != nil {
			return err
		}
	}
	return nil
}

func parseUUID(s string) (bluetooth.UUID, error) {
	uuid, err := bluetooth.ParseUUID(strings.ToLower(s))
	if err != nil {
		return bluetooth.UUID{}, errors.WrapInvalid(err, "ble", "parseUUID", "uuid parsing")
	}
	return uuid, nil
}

// Start registers the GATT service and begins advertising
func (b *BLEBackend) Start(ctx context.Context) error {
	if b.running.Load() {
		return nil
	}

	writeHandler := func(char dispatch.Characteristic) func(bluetooth.Connection, int, []byte) {
		return func(_ bluetooth.Connection, _ int, value []byte) {
			data := make([]byte, len(value))
			copy(data, value)
			b.dispatcher.HandleWrite(char, data)
		}
	}

	service := &bluetooth.Service{
		UUID: b.serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:       b.charUUIDs[dispatch.CharControl],
				Flags:      bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: writeHandler(dispatch.CharControl),
			},
			{
				UUID:       b.charUUIDs[dispatch.CharAuth],
				Flags:      bluetooth.CharacteristicWritePermission,
				WriteEvent: writeHandler(dispatch.CharAuth),
			},
			{
				UUID:       b.charUUIDs[dispatch.CharPose],
				Flags:      bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: writeHandler(dispatch.CharPose),
			},
			{
				Handle: &b.heartbeatChar,
				UUID:   b.charUUIDs[dispatch.CharHeartbeat],
				Value:  []byte{0, 0, 0, 0},
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	}

	if err := b.adapter.AddService(service); err != nil {
		return errors.WrapTransient(err, "ble", "Start", "service registration")
	}
	b.sink.Emit(event.ServiceAdded(dispatch.ServiceUUID))

	b.adv = b.adapter.DefaultAdvertisement()
	if err := b.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    b.session.Name,
		ServiceUUIDs: []bluetooth.UUID{b.serviceUUID},
	}); err != nil {
		return errors.WrapTransient(err, "ble", "Start", "advertisement configuration")
	}
	b.sink.Emit(event.Advertising(b.session.Name))

	start := func() error { return b.adv.Start() }
	if err := retry.Do(ctx, b.retryConfig, start); err != nil {
		return errors.WrapTransient(err, "ble", "Start", "advertising startup")
	}
	b.sink.Emit(event.AdvertisingStarted())
	b.logger.Info("Advertising", "name", b.session.Name)

	b.running.Store(true)
	return nil
}

// Stop stops advertising
func (b *BLEBackend) Stop(_ time.Duration) error {
	if !b.running.Load() {
		return nil
	}
	b.running.Store(false)

	if b.adv != nil {
		if err := b.adv.Stop(); err != nil {
			return errors.WrapTransient(err, "ble", "Stop", "advertising stop")
		}
	}
	return nil
}

// NotifyHeartbeat pushes the encoded counter to the heartbeat
// characteristic, updating its value for readers and notifying
// subscribed centrals. Wire this as the heartbeat NotifyFunc.
func (b *BLEBackend) NotifyHeartbeat(value []byte) {
	if !b.running.Load() {
		return
	}
	if _, err := b.heartbeatChar.Write(value); err != nil {
		b.logger.Debug("Heartbeat notify failed", "error", err)
	}
}
