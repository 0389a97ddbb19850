package console

import (
	"time"

	"kaoban/internal/camera"
	"kaoban/internal/capture"
	"kaoban/internal/gateway"
	"kaoban/internal/generated"
	"kaoban/internal/monitor"
	"kaoban/internal/roster"
	"kaoban/internal/stats"
)

// convertLease はカメラの保持状態を変換する
func convertLease(l camera.Lease) generated.CameraLease {
	lease := generated.CameraLease{Holder: generated.CameraLeaseHolderNone}
	switch l.Holder {
	case camera.HolderRemoteStream:
		lease.Holder = generated.CameraLeaseHolderRemoteStream
	case camera.HolderLocalDevice:
		lease.Holder = generated.CameraLeaseHolderLocalDevice
		if l.Device != nil {
			lease.Device = stringPtr(l.Device.ID())
		}
	}
	return lease
}

func convertMonitorStatus(s monitor.Status) generated.MonitorStatus {
	status := generated.MonitorStatus{
		State:  generated.MonitorStatusState(s.State),
		Since:  s.Since,
		Frames: int64(s.Frames),
	}
	if s.Error != "" {
		status.Error = stringPtr(s.Error)
	}
	return status
}

func convertSnapshot(s stats.Snapshot) generated.StatsSnapshot {
	snap := generated.StatsSnapshot{
		FacesDetected:   int(s.Stats.FacesDetected),
		FacesRecognized: int(s.Stats.FacesRecognized),
		Fps:             float32(s.Stats.FPS),
		Valid:           s.Valid,
		Stale:           s.Stale,
		Failures:        s.Failures,
		LastUpdated:     timePtr(s.Stats.LastUpdated.Time),
		UpdatedAt:       timePtr(s.UpdatedAt),
	}
	return snap
}

// convertSession は登録セッションを変換する
// 静止画そのものは含めない
func convertSession(s capture.Session, captureKey string) generated.Session {
	session := generated.Session{
		Id:           s.ID,
		State:        generated.SessionState(s.State),
		OperatorName: s.OperatorName,
		HasStill:     s.HasStill(),
		Busy:         s.Busy,
		CaptureKey:   captureKey,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.LastError != nil {
		session.LastError = &generated.SessionError{
			Kind:    generated.SessionErrorKind(s.LastError.Kind),
			Message: s.LastError.Message,
		}
	}
	if s.FaceID != "" {
		session.FaceId = stringPtr(s.FaceID)
	}
	if s.Message != "" {
		session.Message = stringPtr(s.Message)
	}
	return session
}

func convertFace(f gateway.FaceRecord, duplicate bool) generated.FaceRecord {
	face := generated.FaceRecord{
		FaceId:           f.FaceID,
		Name:             f.Name,
		SampleCount:      int(f.SampleCount),
		RecognitionCount: int(f.RecognitionCount),
		RegisteredAt:     timePtr(f.RegisteredAt.Time),
	}
	if f.LastSeen != nil {
		face.LastSeen = timePtr(f.LastSeen.Time)
	}
	if duplicate {
		face.Duplicate = &duplicate
	}
	return face
}

func convertConfirmation(c roster.Confirmation) generated.ConfirmationResponse {
	action := generated.Delete
	if c.Action == roster.ActionMerge {
		action = generated.Merge
	}
	return generated.ConfirmationResponse{
		Action: action,
		Target: c.Target,
		Prompt: c.Prompt,
	}
}

func convertAlert(a roster.Alert) map[string]string {
	return map[string]string{
		"action":  string(a.Action),
		"target":  a.Target,
		"message": a.Message,
	}
}

// timePtr はゼロ値の場合 nil を返す
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
