package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"UniversityDashboard/src/dataset"
	"UniversityDashboard/src/processor"
	"UniversityDashboard/src/storage"
	"UniversityDashboard/src/utils"

	"github.com/gin-gonic/gin"
)

// Handler 看板查询接口，每个请求读取一次当前数据集快照
type Handler struct {
	holder  *dataset.Holder
	logger  *storage.Logger
	compare [2]string
}

func NewHandler(holder *dataset.Holder, logger *storage.Logger, compare [2]string) *Handler {
	return &Handler{holder: holder, logger: logger, compare: compare}
}

type selectionQuery struct {
	Year int    `form:"year" binding:"required"`
	Term string `form:"term" binding:"required"`
}

type compareQuery struct {
	A string `form:"a"`
	B string `form:"b"`
}

type metricsResponse struct {
	Record      dataset.Record              `json:"record"`
	Departments []processor.DepartmentCount `json:"departments"`
}

type summaryResponse struct {
	Source     string                     `json:"source"`
	LoadedAt   time.Time                  `json:"loaded_at"`
	Rows       int                        `json:"rows"`
	Columns    []processor.ColumnSummary  `json:"columns"`
	Issues     []*dataset.ValidationError `json:"issues"`
	Duplicates []dataset.Key              `json:"duplicates"`
}

// snapshot 数据集未加载时直接返回503
func (h *Handler) snapshot(c *gin.Context) (*dataset.Dataset, bool) {
	ds := h.holder.Get()
	if ds == nil {
		Fail(c, http.StatusServiceUnavailable, ErrDataUnavailable)
		return nil, false
	}
	return ds, true
}

func bindSelection(c *gin.Context) (selectionQuery, bool) {
	var q selectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, translateErrors(err))
		return q, false
	}
	return q, true
}

func (h *Handler) selectionFailed(c *gin.Context, err error) {
	if dataset.IsNotFound(err) {
		Fail(c, http.StatusNotFound, ErrNoData)
		return
	}
	h.logger.Error(fmt.Sprintf("查询失败: %v", err))
	Fail(c, http.StatusInternalServerError, ErrInternal)
}

func (h *Handler) Health(c *gin.Context) {
	ds := h.holder.Get()
	Success(c, http.StatusOK, gin.H{"status": "ok", "rows": ds.Len()})
}

func (h *Handler) Options(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	Success(c, http.StatusOK, processor.Options(ds))
}

func (h *Handler) Metrics(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	q, ok := bindSelection(c)
	if !ok {
		return
	}

	rec, err := processor.SelectExact(ds, q.Year, q.Term)
	if err != nil {
		h.selectionFailed(c, err)
		return
	}
	Success(c, http.StatusOK, metricsResponse{
		Record:      rec,
		Departments: processor.DepartmentBreakdown(rec),
	})
}

func (h *Handler) Dashboard(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	q, ok := bindSelection(c)
	if !ok {
		return
	}

	d, err := processor.BuildDashboard(ds, q.Year, q.Term, h.compare)
	if err != nil {
		h.selectionFailed(c, err)
		return
	}
	Success(c, http.StatusOK, d)
}

func (h *Handler) Trends(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	Success(c, http.StatusOK, processor.TrendByYearTerm(ds))
}

func (h *Handler) DepartmentTrends(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	Success(c, http.StatusOK, processor.DepartmentTrendByYear(ds))
}

func (h *Handler) TermSubset(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	Success(c, http.StatusOK, processor.SubsetByTerm(ds, c.Param("term")))
}

func (h *Handler) Compare(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	var q compareQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, translateErrors(err))
		return
	}
	if q.A == "" {
		q.A = h.compare[0]
	}
	if q.B == "" {
		q.B = h.compare[1]
	}
	Success(c, http.StatusOK, processor.CompareTerms(ds, q.A, q.B))
}

func (h *Handler) Summary(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}
	issues := ds.Issues
	if issues == nil {
		issues = []*dataset.ValidationError{}
	}
	dups := ds.Duplicates
	if dups == nil {
		dups = []dataset.Key{}
	}
	Success(c, http.StatusOK, summaryResponse{
		Source:     ds.Source,
		LoadedAt:   ds.LoadedAt,
		Rows:       ds.Len(),
		Columns:    processor.Summarize(ds),
		Issues:     issues,
		Duplicates: dups,
	})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Report 生成报表工作簿并下载
func (h *Handler) Report(c *gin.Context) {
	ds, ok := h.snapshot(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := utils.WriteExcel(&buf, processor.ReportSheets(ds, h.compare)...); err != nil {
		h.logger.Error(fmt.Sprintf("生成报表失败: %v", err))
		Fail(c, http.StatusInternalServerError, ErrInternal)
		return
	}
	filename := "dashboard_" + time.Now().Format("20060102150405") + ".xlsx"
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Logs 实时输出日志，客户端断开或日志关闭时结束
func (h *Handler) Logs(c *gin.Context) {
	sub := h.logger.Subscribe()
	defer h.logger.Unsubscribe(sub)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-sub:
			if !ok {
				return false
			}
			_, err := fmt.Fprint(w, msg)
			return err == nil
		case <-c.Request.Context().Done():
			return false
		}
	})
}
