package handlers

import (
	"errors"
	"net/http"
	"sync"

	"hrtoolkit/internal/draw"
	"hrtoolkit/internal/grouping"
	"hrtoolkit/internal/models"
	"hrtoolkit/internal/services"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/logger"
)

type addNamesRequest struct {
	Names string `form:"names" json:"names" binding:"required,max=100000"`
}

type drawSettingsRequest struct {
	Prize       string `form:"prize" json:"prize" binding:"max=100"`
	AllowRepeat bool   `form:"allowRepeat" json:"allowRepeat"`
}

type groupRequest struct {
	Mode models.GroupMode `form:"mode" json:"mode" binding:"required,groupmode"`
	Size int              `form:"size" json:"size" binding:"required,min=1"`
}

// maxGroupCount bounds byGroupCount, which allocates one group per unit of
// Size even when most of them end up empty. byGroupSize is not capped.
const maxGroupCount = 10000

// check applies the rules the binding tags cannot express.
func (r groupRequest) check() error {
	if r.Mode == models.ByGroupCount && r.Size > maxGroupCount {
		return errTooManyGroups
	}
	return nil
}

var (
	errInvalidNames        = errors.New("請輸入至少一位姓名")
	errInvalidPrize        = errors.New("獎項名稱過長")
	errInvalidGroupRequest = errors.New("請選擇分組方式並輸入正整數")
	errTooManyGroups       = errors.New("組數過多，最多 10000 組")
	errNamesTooLong        = errors.New("名單內容過長")
	errBadUpload           = errors.New("請上傳 .csv 或 .txt 文字檔")
	errUploadTooLarge      = errors.New("檔案過大")
	errNoGroups            = errors.New("尚未進行分組")
	errNoWinners           = errors.New("目前沒有中獎紀錄")
)

var registerOnce sync.Once

// registerValidators adds the custom binding rules to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Warning("gin validator engine is not go-playground/validator; custom rules skipped")
			return
		}
		if err := v.RegisterValidation("groupmode", func(fl validator.FieldLevel) bool {
			return models.GroupMode(fl.Field().String()).Valid()
		}); err != nil {
			logger.Errorf("Failed to register groupmode validation: %v", err)
		}
	})
}

// namesBindError picks the notice for a rejected addNamesRequest.
func namesBindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Names" && fe.Tag() == "max" {
				return errNamesTooLong
			}
		}
	}
	return errInvalidNames
}

// statusFor maps domain errors to HTTP status codes. Conditions the user can
// fix by changing the workspace are 422; malformed input is 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, draw.ErrEmptyPool),
		errors.Is(err, grouping.ErrEmptyRoster),
		errors.Is(err, errNoGroups),
		errors.Is(err, errNoWinners):
		return http.StatusUnprocessableEntity
	case errors.Is(err, grouping.ErrInvalidSize),
		errors.Is(err, grouping.ErrInvalidMode),
		errors.Is(err, services.ErrNotConfirmed),
		errors.Is(err, errInvalidNames),
		errors.Is(err, errInvalidPrize),
		errors.Is(err, errInvalidGroupRequest),
		errors.Is(err, errTooManyGroups),
		errors.Is(err, errNamesTooLong),
		errors.Is(err, errBadUpload):
		return http.StatusBadRequest
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// noticeFor returns the message shown to the user. Wrapped domain errors are
// reduced to their sentinel so details like the rejected value stay in logs.
func noticeFor(err error) string {
	for _, known := range []error{
		draw.ErrEmptyPool,
		grouping.ErrEmptyRoster,
		grouping.ErrInvalidSize,
		grouping.ErrInvalidMode,
		services.ErrNotConfirmed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if statusFor(err) == http.StatusInternalServerError {
		logger.Errorf("Unexpected error: %v", err)
		return "系統發生錯誤，請稍後再試"
	}
	return err.Error()
}
