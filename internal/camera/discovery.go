package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var deviceNumberPattern = regexp.MustCompile(`video(\d+)$`)

// CheckDevice はV4L2デバイスノードを開けるか確認する
// 存在しない・使用中の場合は DeviceUnavailable、権限がない場合は AccessDenied を返す
func CheckDevice(device string) error {
	if _, err := os.Stat(device); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Error{Kind: KindDeviceUnavailable, Op: "CheckDevice", Err: fmt.Errorf("%w: %s", ErrNoDevice, device)}
		}
		return classify("CheckDevice", err)
	}

	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, syscall.EBUSY) {
			return &Error{Kind: KindDeviceUnavailable, Op: "CheckDevice", Err: err}
		}
		return classify("CheckDevice", err)
	}
	_ = file.Close()

	return nil
}

// ScanDevices はシステム内の利用可能なV4L2デバイスをスキャンする
func ScanDevices(ctx context.Context) ([]DeviceInfo, error) {
	return scanDevices(ctx, "/dev/video*")
}

func scanDevices(ctx context.Context, pattern string) ([]DeviceInfo, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	devices := make([]DeviceInfo, 0, len(matches))
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if CheckDevice(match) != nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			ID:     match,
			Label:  deviceLabel(ctx, match),
			Driver: "v4l2",
		})
	}

	return devices, nil
}

// deviceLabel はデバイスの表示名を返す
func deviceLabel(ctx context.Context, device string) string {
	if name := v4l2DeviceName(ctx, device); name != "" {
		return name
	}
	return fmt.Sprintf("カメラ %d", extractDeviceNumber(device))
}

// v4l2DeviceName はv4l2-ctlの "Card type" からカメラ名を取得する
// v4l2-ctl がない場合は空文字を返す
func v4l2DeviceName(ctx context.Context, device string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "v4l2-ctl", "--device", device, "--info").Output()
	if err != nil {
		return ""
	}
	return parseCardType(string(output))
}

func parseCardType(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Card type") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	matches := deviceNumberPattern.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return num
}
