package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MockFrame はモックデバイスが返す最小のJPEG
var MockFrame = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

// MockDriver はテスト用のモックドライバー実装
type MockDriver struct {
	mu sync.Mutex

	devices []DeviceInfo
	opened  []*MockDevice
	frame   []byte

	// テスト制御用
	openErr  error
	openGate chan struct{}
}

// NewMockDriver は新しいMockDriverを作成する
func NewMockDriver() *MockDriver {
	return &MockDriver{
		devices: []DeviceInfo{{ID: "mock0", Label: "テストカメラ 1", Driver: "mock"}},
		frame:   MockFrame,
	}
}

// Open はモックデバイスを開く
func (m *MockDriver) Open(ctx context.Context, c Constraints) (Device, error) {
	m.mu.Lock()
	gate := m.openGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return nil, m.openErr
	}

	id := c.DeviceID
	if id == "" {
		id = m.devices[0].ID
	}
	dev := &MockDevice{id: id, frame: m.frame}
	m.opened = append(m.opened, dev)
	return dev, nil
}

// Devices はモックデバイス一覧を返す
func (m *MockDriver) Devices(_ context.Context) ([]DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeviceInfo(nil), m.devices...), nil
}

// SetOpenError はテスト用にOpen失敗を設定する
func (m *MockDriver) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetFrame はテスト用にスナップショットの内容を設定する
func (m *MockDriver) SetFrame(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
}

// Hold はOpenを止め、戻り値の関数を呼ぶまで待たせる
func (m *MockDriver) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.openGate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.openGate = nil
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Opened はこれまでに開いたデバイスを返す
func (m *MockDriver) Opened() []*MockDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockDevice(nil), m.opened...)
}

// MockDevice はテスト用のモックデバイス
type MockDevice struct {
	mu        sync.Mutex
	id        string
	frame     []byte
	closed    bool
	snapErr   error
	snapshots int
}

func (d *MockDevice) ID() string {
	return d.id
}

// Snapshot は設定されたフレームを返す
func (d *MockDevice) Snapshot(_ context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("モック: デバイスは停止済みです")
	}
	if d.snapErr != nil {
		return nil, d.snapErr
	}
	d.snapshots++
	return append([]byte(nil), d.frame...), nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed はデバイスが停止済みか返す
func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// SetSnapshotError はテスト用にSnapshot失敗を設定する
func (d *MockDevice) SetSnapshotError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapErr = err
}

// MockBackend はテスト用のモックバックエンド
type MockBackend struct {
	mu    sync.Mutex
	calls []string

	releaseErr error
	reopenErr  error
}

// NewMockBackend は新しいMockBackendを作成する
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (b *MockBackend) ReleaseCamera(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "release")
	if b.releaseErr != nil {
		return b.releaseErr
	}
	return nil
}

func (b *MockBackend) ReopenCamera(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "reopen")
	if b.reopenErr != nil {
		return b.reopenErr
	}
	return nil
}

func (b *MockBackend) StreamURL() string {
	return "http://mock/api/camera/stream"
}

// Calls は呼び出し履歴を返す
func (b *MockBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// SetReleaseError はテスト用にReleaseCamera失敗を設定する
func (b *MockBackend) SetReleaseError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseErr = err
}

// SetReopenError はテスト用にReopenCamera失敗を設定する
func (b *MockBackend) SetReopenError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reopenErr = err
}

// String はデバッグ用の表示
func (b *MockBackend) String() string {
	return fmt.Sprintf("MockBackend%v", b.Calls())
}
