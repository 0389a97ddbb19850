package console

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"kaoban/internal/camera"
	"kaoban/internal/capture"
	"kaoban/internal/config"
	"kaoban/internal/gateway"
	"kaoban/internal/generated"
	"kaoban/internal/monitor"
	"kaoban/internal/roster"
	"kaoban/internal/stats"
)

// HealthChecker はバックエンドのヘルスチェック
// gateway.Client が実装する
type HealthChecker interface {
	Health(ctx context.Context) (*gateway.HealthStatus, error)
	BaseURL() string
}

const healthTimeout = 3 * time.Second

// maxSampleSize はアップロードを受け付ける画像の最大サイズ
const maxSampleSize = 10 << 20

// ConsoleHandler は生成されたServerInterfaceを実装する
type ConsoleHandler struct {
	config   *config.Config
	nav      *Navigator
	arbiter  *camera.Arbiter
	monitor  *monitor.Monitor
	poller   *stats.Poller
	workflow *capture.Workflow
	roster   *roster.Manager
	health   HealthChecker
	hub      *Hub
}

var _ generated.ServerInterface = (*ConsoleHandler)(nil)

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *ConsoleHandler) HealthCheck(c *gin.Context) {
	response := generated.HealthResponse{
		Status:    generated.Healthy,
		Timestamp: time.Now(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	backend, err := h.health.Health(ctx)
	if err != nil {
		response.Status = generated.Degraded
		response.Backend = stringPtr(errorMessage(err))
	} else {
		response.Backend = stringPtr(backend.Status)
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はコンソール状態取得エンドポイントの実装
func (h *ConsoleHandler) GetStatus(c *gin.Context) {
	response := generated.StatusResponse{
		Status: generated.Running,
		Server: generated.ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		View:       generated.ViewName(h.nav.Current()),
		BackendUrl: h.health.BaseURL(),
		Camera:     convertLease(h.arbiter.Lease()),
		Timestamp:  time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// NavigateView は画面切り替えエンドポイントの実装
func (h *ConsoleHandler) NavigateView(c *gin.Context, view generated.ViewName) {
	if !h.navigate(c, View(view)) {
		return
	}
	c.JSON(http.StatusOK, generated.ViewResponse{View: generated.ViewName(h.nav.Current())})
}

// navigate は画面を切り替え、失敗した場合は502を返す
func (h *ConsoleHandler) navigate(c *gin.Context, to View) bool {
	if err := h.nav.Navigate(c.Request.Context(), to); err != nil {
		abortWithError(c, http.StatusBadGateway, "navigation_failed", errorMessage(err), err.Error())
		return false
	}
	return true
}

// GetMonitorStatus は監視画面の状態取得エンドポイントの実装
func (h *ConsoleHandler) GetMonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, convertMonitorStatus(h.monitor.Status()))
}

// EnterMonitor は監視画面を開く
func (h *ConsoleHandler) EnterMonitor(c *gin.Context) {
	if !h.navigate(c, ViewMonitor) {
		return
	}
	c.JSON(http.StatusOK, convertMonitorStatus(h.monitor.Status()))
}

// LeaveMonitor は監視画面を閉じる
func (h *ConsoleHandler) LeaveMonitor(c *gin.Context) {
	if h.nav.Current() == ViewMonitor {
		if !h.navigate(c, ViewNone) {
			return
		}
	}
	c.JSON(http.StatusOK, convertMonitorStatus(h.monitor.Status()))
}

// GetMonitorStats は直近の統計を返す
func (h *ConsoleHandler) GetMonitorStats(c *gin.Context) {
	c.JSON(http.StatusOK, convertSnapshot(h.poller.Last()))
}

// GetMonitorStream はMJPEGストリーミングエンドポイントの実装
func (h *ConsoleHandler) GetMonitorStream(c *gin.Context) {
	status := h.monitor.Status()
	if status.State != monitor.StateLive && status.State != monitor.StateConnecting {
		errorResponse := generated.ErrorResponse{
			Error:     "stream_not_active",
			Message:   "監視ストリームが開始されていません",
			Timestamp: time.Now(),
		}
		if status.Error != "" {
			errorResponse.Details = stringPtr(status.Error)
		}
		c.JSON(http.StatusServiceUnavailable, errorResponse)
		return
	}

	// MJPEGストリーミングを配信
	h.streamMJPEG(c)
}

// GetRegistration は登録セッションを返す
func (h *ConsoleHandler) GetRegistration(c *gin.Context) {
	c.JSON(http.StatusOK, h.session())
}

// GetRegistrationStill は撮影した静止画を返す
func (h *ConsoleHandler) GetRegistrationStill(c *gin.Context) {
	s := h.workflow.Session()
	if !s.HasStill() {
		abortWithError(c, http.StatusNotFound, "still_not_found", capture.MessageImageRequired, "")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", s.StillImage)
}

// EnterRegistration は登録画面を開く
// 監視画面は先に閉じられる
func (h *ConsoleHandler) EnterRegistration(c *gin.Context) {
	if !h.navigate(c, ViewRegistration) {
		return
	}
	c.JSON(http.StatusOK, h.session())
}

// LeaveRegistration は登録画面を閉じて監視画面に戻る
func (h *ConsoleHandler) LeaveRegistration(c *gin.Context) {
	if !h.navigate(c, ViewMonitor) {
		return
	}
	c.JSON(http.StatusOK, h.session())
}

// StartCapture はローカルカメラを開始する
func (h *ConsoleHandler) StartCapture(c *gin.Context) {
	h.respondSession(c, h.workflow.Start(c.Request.Context()))
}

// CaptureStill は静止画を撮影する
func (h *ConsoleHandler) CaptureStill(c *gin.Context) {
	h.respondSession(c, h.workflow.Capture(c.Request.Context()))
}

// RetakeStill は撮り直す
func (h *ConsoleHandler) RetakeStill(c *gin.Context) {
	h.respondSession(c, h.workflow.Retake(c.Request.Context()))
}

// RetrySubmit は失敗後に撮影済みの状態へ戻る
func (h *ConsoleHandler) RetrySubmit(c *gin.Context) {
	h.respondSession(c, h.workflow.Retry())
}

// RestartRegistration は最初からやり直す
func (h *ConsoleHandler) RestartRegistration(c *gin.Context) {
	h.respondSession(c, h.workflow.Restart())
}

// SetOperatorName は登録する名前を設定する
func (h *ConsoleHandler) SetOperatorName(c *gin.Context) {
	var req generated.SetOperatorNameJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "リクエストの形式が正しくありません", err.Error())
		return
	}
	h.respondSession(c, h.workflow.SetOperatorName(req.Name))
}

// PressKey はキー入力を渡す
func (h *ConsoleHandler) PressKey(c *gin.Context) {
	var req generated.PressKeyJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "リクエストの形式が正しくありません", err.Error())
		return
	}

	handled, err := h.workflow.HandleKey(c.Request.Context(), req.Key)
	if err != nil {
		h.abortWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, generated.KeyResponse{Handled: handled, Session: h.session()})
}

// SubmitRegistration は顔を登録する
// 登録の失敗はセッションの last_error にも残る
func (h *ConsoleHandler) SubmitRegistration(c *gin.Context) {
	h.respondSession(c, h.workflow.Submit(c.Request.Context()))
}

// ListFaces は顔データ一覧を取得し直して返す
func (h *ConsoleHandler) ListFaces(c *gin.Context) {
	faces, err := h.roster.List(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, "backend_error", errorMessage(err), err.Error())
		return
	}

	dups := make(map[string]bool)
	for _, name := range roster.DuplicateNames(faces) {
		dups[name] = true
	}

	response := generated.FacesResponse{
		Total: len(faces),
		Faces: make([]generated.FaceRecord, 0, len(faces)),
	}
	for _, f := range faces {
		response.Faces = append(response.Faces, convertFace(f, dups[f.Name]))
	}
	c.JSON(http.StatusOK, response)
}

// ListDuplicates は同じ名前の顔データを返す
func (h *ConsoleHandler) ListDuplicates(c *gin.Context) {
	if !h.roster.Loaded() {
		if _, err := h.roster.List(c.Request.Context()); err != nil {
			abortWithError(c, http.StatusBadGateway, "backend_error", errorMessage(err), err.Error())
			return
		}
	}

	groups := h.roster.Duplicates()
	response := generated.DuplicatesResponse{Duplicates: make([]generated.DuplicateGroup, 0, len(groups))}
	for _, g := range groups {
		response.Duplicates = append(response.Duplicates, generated.DuplicateGroup{
			Name:    g.Name,
			Count:   g.Count,
			FaceIds: g.FaceIDs,
		})
	}
	c.JSON(http.StatusOK, response)
}

// DeleteFace は顔データを削除する
// confirm が対象の表示名と一致しない場合は409で確認内容を返す
func (h *ConsoleHandler) DeleteFace(c *gin.Context, faceId string, params generated.DeleteFaceParams) {
	ctx := c.Request.Context()

	if _, ok := h.roster.Find(faceId); !ok {
		if _, err := h.roster.List(ctx); err != nil {
			abortWithError(c, http.StatusBadGateway, "backend_error", errorMessage(err), err.Error())
			return
		}
	}

	confirmer, asked := confirmByQuery(params.Confirm)
	err := h.roster.Remove(ctx, faceId, confirmer)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, roster.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "face_not_found", "指定された顔データが見つかりません", faceId)
	case errors.Is(err, roster.ErrCancelled):
		c.JSON(http.StatusConflict, convertConfirmation(*asked))
	default:
		abortWithError(c, http.StatusBadGateway, "delete_failed", errorMessage(err), err.Error())
	}
}

// AddFaceSample はサンプル画像を追加する
func (h *ConsoleHandler) AddFaceSample(c *gin.Context, faceId string) {
	image, err := readFormImage(c, "image")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_image", capture.MessageImageRequired, err.Error())
		return
	}

	res, err := h.roster.AddSample(c.Request.Context(), faceId, image)
	var semErr *gateway.SemanticError
	switch {
	case err == nil, errors.As(err, &semErr):
		c.JSON(http.StatusOK, generated.SampleResponse{
			Success:     res.Success,
			FaceId:      res.FaceID,
			SampleCount: int(res.SampleCount),
			Message:     res.Message,
		})
	default:
		abortWithError(c, statusForGatewayError(err), "add_sample_failed", errorMessage(err), err.Error())
	}
}

// MergeFaces は同じ名前の顔データを統合する
func (h *ConsoleHandler) MergeFaces(c *gin.Context, name string, params generated.MergeFacesParams) {
	ctx := c.Request.Context()

	if !h.roster.Loaded() {
		if _, err := h.roster.List(ctx); err != nil {
			abortWithError(c, http.StatusBadGateway, "backend_error", errorMessage(err), err.Error())
			return
		}
	}

	confirmer, asked := confirmByQuery(params.Confirm)
	res, err := h.roster.MergeByName(ctx, name, confirmer)
	var semErr *gateway.SemanticError
	switch {
	case err == nil, errors.As(err, &semErr):
		response := generated.MergeResponse{
			Success:     res.Success,
			Name:        res.Name,
			MergedCount: res.MergedCount,
			Message:     res.Message,
		}
		if res.MergedFaceID != "" {
			response.MergedFaceId = stringPtr(res.MergedFaceID)
		}
		c.JSON(http.StatusOK, response)
	case errors.Is(err, roster.ErrNotDuplicate):
		abortWithError(c, http.StatusUnprocessableEntity, "not_duplicate", "同じ名前の顔データが2件以上ありません", name)
	case errors.Is(err, roster.ErrCancelled):
		c.JSON(http.StatusConflict, convertConfirmation(*asked))
	default:
		abortWithError(c, http.StatusBadGateway, "merge_failed", errorMessage(err), err.Error())
	}
}

// GetEvents はWebSocketでイベントを配信する
func (h *ConsoleHandler) GetEvents(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		// Upgrader がエラーレスポンスを書き込み済み
		log.Debug().Str("component", "console").Err(err).Msg("WebSocketへの切り替えに失敗しました")
	}
}

// ヘルパー関数

func (h *ConsoleHandler) session() generated.Session {
	return convertSession(h.workflow.Session(), h.workflow.CaptureKey())
}

// respondSession は操作の結果に応じてセッションかエラーを返す
func (h *ConsoleHandler) respondSession(c *gin.Context, err error) {
	if err != nil {
		h.abortWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session())
}

func (h *ConsoleHandler) abortWorkflowError(c *gin.Context, err error) {
	var (
		vErr   *capture.ValidationError
		semErr *capture.SemanticFailure
		camErr *camera.Error
		gwErr  *gateway.Error
	)
	switch {
	case errors.Is(err, capture.ErrBusy):
		abortWithError(c, http.StatusConflict, "busy", err.Error(), "")
	case errors.Is(err, capture.ErrNotEntered):
		abortWithError(c, http.StatusConflict, "not_entered", err.Error(), "")
	case errors.Is(err, capture.ErrInvalidTransition):
		abortWithError(c, http.StatusConflict, "invalid_transition", err.Error(), string(h.workflow.Session().State))
	case errors.Is(err, capture.ErrAborted):
		abortWithError(c, http.StatusConflict, "aborted", err.Error(), "")
	case errors.As(err, &vErr):
		abortWithError(c, http.StatusUnprocessableEntity, "validation_error", vErr.Message, vErr.Field)
	case errors.As(err, &semErr):
		abortWithError(c, http.StatusUnprocessableEntity, "register_rejected", semErr.Message, "")
	case errors.As(err, &camErr):
		abortWithError(c, http.StatusServiceUnavailable, string(camErr.Kind), camErr.Message(), camErr.Error())
	case errors.As(err, &gwErr):
		abortWithError(c, statusForGatewayError(err), string(gwErr.Kind), gwErr.Message(), gwErr.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "internal_error", err.Error(), "")
	}
}

// confirmByQuery は confirm パラメータが対象の表示名と一致する場合のみ承認する
// 確認内容は asked に記録される
func confirmByQuery(confirm *string) (roster.Confirmer, *roster.Confirmation) {
	asked := &roster.Confirmation{}
	return roster.ConfirmFunc(func(_ context.Context, c roster.Confirmation) (bool, error) {
		*asked = c
		return confirm != nil && *confirm != "" && *confirm == c.Target, nil
	}), asked
}

func readFormImage(c *gin.Context, field string) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSampleSize)
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("画像が空です")
	}
	return data, nil
}

func statusForGatewayError(err error) int {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Kind == gateway.KindServerError && gwErr.StatusCode == http.StatusUnprocessableEntity {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// errorMessage はオペレーター向けのメッセージを返す
func errorMessage(err error) string {
	var camErr *camera.Error
	if errors.As(err, &camErr) {
		return camErr.Message()
	}
	return roster.Message(err)
}

func abortWithError(c *gin.Context, status int, code, message, details string) {
	errorResponse := generated.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
	if details != "" {
		errorResponse.Details = stringPtr(details)
	}
	c.AbortWithStatusJSON(status, errorResponse)
}

// stringPtr は文字列のポインタを返すヘルパー関数
func stringPtr(s string) *string {
	return &s
}
