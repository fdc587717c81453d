package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"easyshifts/backend/internal/model"
	"easyshifts/backend/internal/repository"
	pkgerrors "easyshifts/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoWorkers    = pkgerrors.New(pkgerrors.KindNotFound, "该班次暂无分配员工")
	ErrExportGenerateFail = pkgerrors.New(pkgerrors.KindInternal, "生成 Excel 文件失败")
)

const timesheetSheet = "工时表"

// 导出时间统一按 UTC 显示
const exportTimeLayout = "2006-01-02 15:04"

var timesheetHeaders = []string{
	"员工", "岗位", "状态",
	"签到1", "签退1", "签到2", "签退2", "签到3", "签退3",
	"工时(小时)", "缺勤", "强制签退", "已审批", "备注",
}

var clockStatusNames = map[string]string{
	model.ClockStatusNotStarted: "未开始",
	model.ClockStatusClockedIn:  "已签到",
	model.ClockStatusClockedOut: "已签退",
}

// ExportService 导出业务接口
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写出
type ExportService interface {
	// ExportTimesheet 导出班次工时表为 Excel
	ExportTimesheet(ctx context.Context, shiftID int64) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	timecard *timecardService
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{
		repo:     repo,
		timecard: &timecardService{repo: repo, logger: logger, now: time.Now},
		logger:   logger,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportTimesheet 导出班次工时表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：岗位名称 @ 场地 + 班次日期
//   - 每名员工一行：三组签到/签退、工时、缺勤、强制签退、审批、备注
//   - 末行合计工时

func (s *exportService) ExportTimesheet(ctx context.Context, shiftID int64) (*bytes.Buffer, string, error) {
	shift, err := s.timecard.getShift(ctx, shiftID)
	if err != nil {
		return nil, "", err
	}
	workers, err := s.timecard.listWorkers(ctx, shiftID)
	if err != nil {
		return nil, "", err
	}
	if len(workers) == 0 {
		return nil, "", ErrExportNoWorkers
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(timesheetSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	lastCol := colName(len(timesheetHeaders) - 1)
	f.SetColWidth(timesheetSheet, "A", "C", 14)
	f.SetColWidth(timesheetSheet, "D", "I", 18)
	f.SetColWidth(timesheetSheet, "J", "M", 10)
	f.SetColWidth(timesheetSheet, lastCol, lastCol, 40)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	title := fmt.Sprintf("%s @ %s  %s", shift.JobName, shift.Venue, shift.ShiftStart.UTC().Format("2006-01-02"))
	f.SetCellValue(timesheetSheet, "A1", title)
	f.MergeCell(timesheetSheet, "A1", cell(lastCol, 1))
	f.SetCellStyle(timesheetSheet, "A1", "A1", headerStyle)

	// 表头
	for i, h := range timesheetHeaders {
		f.SetCellValue(timesheetSheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(timesheetSheet, "A2", cell(lastCol, 2), headerStyle)

	// 数据行
	row := 3
	var total float64
	for i := range workers {
		w := &workers[i]
		values := []interface{}{
			workerName(w), w.Role, clockStatusNames[w.CurrentStatus],
		}
		for _, p := range w.Pairs() {
			values = append(values, formatClock(p.In), formatClock(p.Out))
		}
		values = append(values,
			w.TotalHoursWorked,
			yesNo(w.IsAbsent),
			yesNo(w.ForcedClockOut),
			yesNo(w.TimesheetApproved),
			w.Notes,
		)
		for col, v := range values {
			f.SetCellValue(timesheetSheet, cell(colName(col), row), v)
		}
		total += w.TotalHoursWorked
		row++
	}

	// 合计行
	f.SetCellValue(timesheetSheet, cell("A", row), "合计")
	f.SetCellValue(timesheetSheet, cell(colName(9), row), math.Round(total*100)/100)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Int64("shift_id", shiftID), zap.Error(err))
		return nil, "", pkgerrors.Wrap(pkgerrors.KindInternal, ErrExportGenerateFail.Message, err)
	}

	filename := fmt.Sprintf("timesheet_shift_%d_%s.xlsx", shiftID, shift.ShiftStart.UTC().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
