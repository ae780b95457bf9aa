package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"hrtoolkit/internal/export"
	"hrtoolkit/internal/models"
	"hrtoolkit/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service        *services.WorkspaceService
	templates      *template.Template
	maxUploadBytes int64
	secureCookies  bool
	now            func() time.Time
}

// Options configures an HTTPHandler.
type Options struct {
	MaxUploadBytes int64
	SecureCookies  bool
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.WorkspaceService, templates *template.Template, opts Options) *HTTPHandler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 1 << 20
	}
	registerValidators()
	return &HTTPHandler{
		service:        service,
		templates:      templates,
		maxUploadBytes: opts.MaxUploadBytes,
		secureCookies:  opts.SecureCookies,
		now:            time.Now,
	}
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	buf := new(bytes.Buffer)
	if err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData); err != nil {
		logger.Infof("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	pageData["PageContent"] = template.HTML(buf.String())

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData); err != nil {
		logger.Infof("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
	}
}

// renderPartial writes a single HTMX fragment.
func (h *HTTPHandler) renderPartial(c *gin.Context, status int, name string, data any) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		logger.Infof("Error executing template %s: %v", name, err)
		c.String(http.StatusInternalServerError, "Template error")
	}
}

// renderNotice reports a user-facing error as a blocking notice fragment.
func (h *HTTPHandler) renderNotice(c *gin.Context, err error) {
	h.renderPartial(c, statusFor(err), "notice.html", gin.H{"Message": noticeFor(err)})
}

func (h *HTTPHandler) snapshot(c *gin.Context) services.Snapshot {
	return h.service.Snapshot(tenantID(c))
}

// RegisterPublicRoutes registers routes that do not need a workspace.
func (h *HTTPHandler) RegisterPublicRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}

// RegisterTenantRoutes registers the routes that act on the caller's workspace.
func (h *HTTPHandler) RegisterTenantRoutes(router *gin.RouterGroup) {
	router.GET("/", h.ShowIndex)

	router.GET("/roster", h.ShowRosterPage)
	router.POST("/roster", h.AddParticipants)
	router.POST("/roster/upload", h.UploadRoster)
	router.POST("/roster/sample", h.AddSample)
	router.POST("/roster/dedupe", h.RemoveDuplicates)
	router.POST("/roster/clear", h.ClearRoster)
	router.POST("/roster/:id/delete", h.RemoveParticipant)

	router.GET("/draw", h.ShowDrawPage)
	router.POST("/draw", h.PerformDraw)
	router.GET("/draw/status", h.ShowDrawStatus)
	router.POST("/draw/settings", h.UpdateDrawSettings)
	router.GET("/draw/spin", h.SpinDraw)
	router.POST("/draw/reset", h.ResetWinners)
	router.GET("/draw/export.csv", h.ExportWinnersCSV)

	router.GET("/groups", h.ShowGroupsPage)
	router.POST("/groups", h.PerformGrouping)
	router.GET("/groups/export.csv", h.ExportGroupsCSV)
	router.GET("/groups/clipboard.txt", h.GroupsClipboard)

	api := router.Group("/api")
	api.GET("/state", h.GetState)
	api.POST("/roster", h.APIAddParticipants)
	api.POST("/draw", h.APIDraw)
	api.POST("/groups", h.APIPartition)
}

// ShowIndex handles the request for the home page.
func (h *HTTPHandler) ShowIndex(c *gin.Context) {
	h.renderPage(c, gin.H{"title": "首頁", "State": h.snapshot(c)}, "index.html")
}

// ShowRosterPage handles the request for the roster management page.
func (h *HTTPHandler) ShowRosterPage(c *gin.Context) {
	h.renderPage(c, gin.H{"title": "名單管理", "State": h.snapshot(c)}, "roster.html")
}

func (h *HTTPHandler) renderRoster(c *gin.Context) {
	h.renderPartial(c, http.StatusOK, "participant_list.html", gin.H{"State": h.snapshot(c)})
}

// AddParticipants handles the free-text form. Names are separated by
// newlines or commas.
func (h *HTTPHandler) AddParticipants(c *gin.Context) {
	var req addNamesRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderNotice(c, namesBindError(err))
		return
	}
	h.service.AddNames(tenantID(c), req.Names)
	h.renderRoster(c)
}

// UploadRoster handles a .csv or .txt upload. The file is read as plain
// text; no CSV columns are interpreted.
func (h *HTTPHandler) UploadRoster(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+4096)
	file, header, err := c.Request.FormFile("rosterFile")
	if err != nil {
		logger.Infof("Error retrieving roster file: %v", err)
		if errors.As(err, new(*http.MaxBytesError)) {
			h.renderNotice(c, errUploadTooLarge)
			return
		}
		h.renderNotice(c, errBadUpload)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".txt" {
		h.renderNotice(c, errBadUpload)
		return
	}
	if header.Size > h.maxUploadBytes {
		h.renderNotice(c, errUploadTooLarge)
		return
	}

	n, err := h.service.ImportFile(tenantID(c), file)
	if err != nil {
		logger.Infof("Error importing roster file %s: %v", header.Filename, err)
		h.renderNotice(c, errBadUpload)
		return
	}
	logger.Infof("Imported %d participants from %s", n, header.Filename)
	h.renderRoster(c)
}

// AddSample appends the demo roster.
func (h *HTTPHandler) AddSample(c *gin.Context) {
	h.service.AddSample(tenantID(c))
	h.renderRoster(c)
}

// RemoveParticipant removes one participant by id.
func (h *HTTPHandler) RemoveParticipant(c *gin.Context) {
	h.service.RemoveParticipant(tenantID(c), c.Param("id"))
	h.renderRoster(c)
}

// RemoveDuplicates keeps the first participant of every name.
func (h *HTTPHandler) RemoveDuplicates(c *gin.Context) {
	h.service.Deduplicate(tenantID(c))
	h.renderRoster(c)
}

// ClearRoster empties the roster. The form must carry confirm=true.
func (h *HTTPHandler) ClearRoster(c *gin.Context) {
	if err := h.service.ClearRoster(tenantID(c), confirmed(c)); err != nil {
		h.renderNotice(c, err)
		return
	}
	h.renderRoster(c)
}

// ShowDrawPage handles the request for the lucky draw page.
func (h *HTTPHandler) ShowDrawPage(c *gin.Context) {
	h.renderPage(c, gin.H{"title": "獎品抽籤", "State": h.snapshot(c)}, "draw.html")
}

// ShowDrawStatus returns the eligible count and winner history fragment.
func (h *HTTPHandler) ShowDrawStatus(c *gin.Context) {
	h.renderPartial(c, http.StatusOK, "draw_status.html", gin.H{"State": h.snapshot(c)})
}

// UpdateDrawSettings stores the prize label and the repeat flag.
func (h *HTTPHandler) UpdateDrawSettings(c *gin.Context) {
	var req drawSettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderNotice(c, errInvalidPrize)
		return
	}
	h.service.SetDrawSettings(tenantID(c), strings.TrimSpace(req.Prize), req.AllowRepeat)
	h.renderPartial(c, http.StatusOK, "draw_status.html", gin.H{"State": h.snapshot(c)})
}

// PerformDraw draws a winner without animation.
func (h *HTTPHandler) PerformDraw(c *gin.Context) {
	winner, err := h.service.Draw(tenantID(c))
	if err != nil {
		h.renderNotice(c, err)
		return
	}
	h.renderPartial(c, http.StatusOK, "draw_result.html", gin.H{
		"Winner": winner,
		"State":  h.snapshot(c),
	})
}

// SpinDraw streams the rolling-name animation as server-sent events and
// finishes with the real draw. A client that disconnects cancels the spin
// and no winner is recorded.
func (h *HTTPHandler) SpinDraw(c *gin.Context) {
	tenant := tenantID(c)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	winner, err := h.service.Spin(c.Request.Context(), tenant, func(p models.Participant) {
		c.SSEvent("frame", p.Name)
		c.Writer.Flush()
	})
	switch {
	case err != nil && c.Request.Context().Err() != nil:
		logger.Infof("Spin cancelled for tenant %s: %v", tenant, err)
		return
	case err != nil:
		c.SSEvent("error", noticeFor(err))
	default:
		c.SSEvent("winner", winner)
	}
	c.Writer.Flush()
}

// ResetWinners clears the winner history. The form must carry confirm=true.
func (h *HTTPHandler) ResetWinners(c *gin.Context) {
	if err := h.service.ResetWinners(tenantID(c), confirmed(c)); err != nil {
		h.renderNotice(c, err)
		return
	}
	h.renderPartial(c, http.StatusOK, "draw_status.html", gin.H{"State": h.snapshot(c)})
}

// ExportWinnersCSV downloads the winner history.
func (h *HTTPHandler) ExportWinnersCSV(c *gin.Context) {
	winners := h.snapshot(c).Winners
	if len(winners) == 0 {
		h.renderNotice(c, errNoWinners)
		return
	}
	setAttachment(c, "中獎紀錄.csv")
	if err := export.WriteWinnersCSV(c.Writer, winners, time.Local); err != nil {
		logger.Infof("Error writing winners CSV: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

// ShowGroupsPage handles the request for the grouping page.
func (h *HTTPHandler) ShowGroupsPage(c *gin.Context) {
	h.renderPage(c, gin.H{"title": "自動分組", "State": h.snapshot(c)}, "groups.html")
}

// PerformGrouping partitions the roster with the submitted mode and size.
func (h *HTTPHandler) PerformGrouping(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBind(&req); err != nil {
		logger.Infof("Rejected grouping request: %v", err)
		h.renderNotice(c, errInvalidGroupRequest)
		return
	}
	if err := req.check(); err != nil {
		h.renderNotice(c, err)
		return
	}
	if _, err := h.service.Partition(tenantID(c), req.Mode, req.Size); err != nil {
		h.renderNotice(c, err)
		return
	}
	h.renderPartial(c, http.StatusOK, "group_list.html", gin.H{"State": h.snapshot(c)})
}

// ExportGroupsCSV downloads the latest grouping result.
func (h *HTTPHandler) ExportGroupsCSV(c *gin.Context) {
	groups := h.snapshot(c).Groups
	if len(groups) == 0 {
		h.renderNotice(c, errNoGroups)
		return
	}
	setAttachment(c, export.GroupsCSVFilename(h.now()))
	if err := export.WriteGroupsCSV(c.Writer, groups); err != nil {
		logger.Infof("Error writing groups CSV: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

// GroupsClipboard returns the grouping result as plain text for copying.
func (h *HTTPHandler) GroupsClipboard(c *gin.Context) {
	groups := h.snapshot(c).Groups
	if len(groups) == 0 {
		h.renderNotice(c, errNoGroups)
		return
	}
	c.String(http.StatusOK, "%s", export.ClipboardText(groups))
}

// GetState returns the whole workspace as JSON.
func (h *HTTPHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c))
}

// APIAddParticipants is the JSON form of AddParticipants.
func (h *HTTPHandler) APIAddParticipants(c *gin.Context) {
	var req addNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": noticeFor(namesBindError(err))})
		return
	}
	added := h.service.AddNames(tenantID(c), req.Names)
	c.JSON(http.StatusOK, gin.H{"added": added, "state": h.snapshot(c)})
}

// APIDraw is the JSON form of PerformDraw.
func (h *HTTPHandler) APIDraw(c *gin.Context) {
	winner, err := h.service.Draw(tenantID(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": noticeFor(err)})
		return
	}
	c.JSON(http.StatusOK, winner)
}

// APIPartition is the JSON form of PerformGrouping.
func (h *HTTPHandler) APIPartition(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": noticeFor(errInvalidGroupRequest)})
		return
	}
	if err := req.check(); err != nil {
		c.JSON(statusFor(err), gin.H{"error": noticeFor(err)})
		return
	}
	groups, err := h.service.Partition(tenantID(c), req.Mode, req.Size)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": noticeFor(err)})
		return
	}
	c.JSON(http.StatusOK, groups)
}

func confirmed(c *gin.Context) bool {
	return c.PostForm("confirm") == "true"
}

func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
}
