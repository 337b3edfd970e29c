package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// 规则常量
const (
	MinAge = 16
	MaxAge = 100

	MinWeeklyHours = 20
	MaxWeeklyHours = 40

	MinDurationDays = 30
	MaxDurationDays = 730

	MinNotificationTitle   = 5
	MinNotificationMessage = 10
)

var (
	nationalIDPattern = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	phonePattern      = regexp.MustCompile(`^\(\d{2}\) \d{4,5}-\d{4}$`)
	taxIDPattern      = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
)

// ────────────────────── 单项规则 ──────────────────────

// NationalID 个人证件号，格式 000.000.000-00
func NationalID(v string) error {
	if !nationalIDPattern.MatchString(v) {
		return newError(ErrFormat, "national_id", "证件号格式应为 000.000.000-00")
	}
	return nil
}

// Phone 电话，格式 (00) 0000-0000 或 (00) 00000-0000
func Phone(v string) error {
	if !phonePattern.MatchString(v) {
		return newError(ErrFormat, "phone", "电话格式应为 (00) 00000-0000")
	}
	return nil
}

// TaxID 企业税号，格式 00.000.000/0000-00
func TaxID(v string) error {
	if !taxIDPattern.MatchString(v) {
		return newError(ErrFormat, "tax_id", "企业税号格式应为 00.000.000/0000-00")
	}
	return nil
}

// Age 以 today 计算周岁，须在 [16, 100]
func Age(birth, today time.Time) error {
	age := timeutil.AgeOn(birth, today)
	if age < MinAge {
		return newError(ErrRange, "birth_date", fmt.Sprintf("实习生须年满 %d 周岁", MinAge))
	}
	if age > MaxAge {
		return newError(ErrRange, "birth_date", "出生日期不合理")
	}
	return nil
}

// Duration 开始日期须早于结束日期，且相差 30 至 730 天
func Duration(start, end time.Time) error {
	if !start.Before(end) {
		return newError(ErrDuration, "end_date", "结束日期必须晚于开始日期")
	}
	days := timeutil.DaysBetween(start, end)
	if days < MinDurationDays {
		return newError(ErrDuration, "end_date", fmt.Sprintf("实习期限不得少于 %d 天", MinDurationDays))
	}
	if days > MaxDurationDays {
		return newError(ErrDuration, "end_date", fmt.Sprintf("实习期限不得超过 %d 天", MaxDurationDays))
	}
	return nil
}

// WeeklyHours 每周工时须在 [20, 40]
func WeeklyHours(h int) error {
	if h < MinWeeklyHours || h > MaxWeeklyHours {
		return newError(ErrRange, "weekly_hours",
			fmt.Sprintf("每周工时须在 %d 到 %d 小时之间", MinWeeklyHours, MaxWeeklyHours))
	}
	return nil
}

// Period 待校验的实习期间；ID 为空表示新建
type Period struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Overlap 与同一实习生其他进行中的实习比较，端点相接也算重叠
// others 中非 IN_PROGRESS 的记录与 candidate 自身会被跳过
func Overlap(candidate Period, others []model.Internship) error {
	for i := range others {
		o := &others[i]
		if o.Status != model.InternshipInProgress {
			continue
		}
		if candidate.ID != "" && o.InternshipID == candidate.ID {
			continue
		}
		if !candidate.Start.After(o.EndDate) && !candidate.End.Before(o.StartDate) {
			return newError(ErrConflict, "period", fmt.Sprintf("与进行中的实习期间 %s ~ %s 重叠",
				timeutil.Format(o.StartDate), timeutil.Format(o.EndDate)))
		}
	}
	return nil
}

// Date 解析 YYYY-MM-DD 日历日期
func Date(field, v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, newError(ErrRequired, field, "不能为空")
	}
	d, err := timeutil.Parse(v)
	if err != nil {
		return time.Time{}, newError(ErrFormat, field, "日期格式应为 YYYY-MM-DD")
	}
	return d, nil
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return newError(ErrRequired, field, "不能为空")
	}
	return nil
}

// ────────────────────── 实体级校验 ──────────────────────

// InternInput 实习生字段
type InternInput struct {
	Name       string
	Email      string
	Phone      string
	NationalID string
	BirthDate  time.Time
	Course     string
	Term       string
}

// Intern 新建实习生时的完整校验；today 为机构时区的今天
func Intern(in InternInput, today time.Time) error {
	var errs Errors
	errs.Add(InternFields(in))
	errs.Add(Age(in.BirthDate, today))
	return errs.Err()
}

// InternFields 不含年龄区间的字段校验。年龄只在新建或修改出生日期时检查，
// 已在册实习生超过上限后仍可编辑与停用
func InternFields(in InternInput) error {
	var errs Errors
	errs.Add(required("name", in.Name))
	errs.Add(required("email", in.Email))
	errs.Add(required("course", in.Course))
	errs.Add(required("term", in.Term))
	errs.Add(Phone(in.Phone))
	errs.Add(NationalID(in.NationalID))
	return errs.Err()
}

// AgreementInput 合作协议字段
type AgreementInput struct {
	CompanyName string
	TaxID       string
	Address     string
	Phone       string
	ContactName string
}

// Agreement 校验合作协议
func Agreement(in AgreementInput) error {
	var errs Errors
	errs.Add(required("company_name", in.CompanyName))
	errs.Add(required("address", in.Address))
	errs.Add(required("contact_name", in.ContactName))
	errs.Add(TaxID(in.TaxID))
	errs.Add(Phone(in.Phone))
	return errs.Err()
}

// InternshipInput 实习记录字段
type InternshipInput struct {
	ID             string
	SupervisorName string
	WeeklyHours    int
	StartDate      time.Time
	EndDate        time.Time
	Status         model.InternshipStatus
}

// Internship 校验实习记录；others 为同一实习生的其他实习
// 只有以进行中状态保存时才做重叠检查
func Internship(in InternshipInput, others []model.Internship) error {
	var errs Errors
	errs.Add(required("supervisor_name", in.SupervisorName))
	errs.Add(WeeklyHours(in.WeeklyHours))

	if err := Duration(in.StartDate, in.EndDate); err != nil {
		errs.Add(err)
	} else if in.Status == "" || in.Status == model.InternshipInProgress {
		errs.Add(Overlap(Period{ID: in.ID, Start: in.StartDate, End: in.EndDate}, others))
	}
	return errs.Err()
}

// ────────────────────── 文档 / 通知 / 报表 ──────────────────────

// MaxFileNameBytes 原始文件名字节上限。documents.file_name 为 255 字符，
// 落盘名还要加 37 字节的 "<uuid>-" 前缀，多数文件系统单段上限 255 字节
const MaxFileNameBytes = 200

// Upload 文件名长度、大小与扩展名检查
func Upload(fileName string, size, maxBytes int64, allowedExt []string) error {
	var errs Errors
	if len(fileName) > MaxFileNameBytes {
		errs.Add(newError(ErrRange, "file", fmt.Sprintf("文件名过长，不能超过 %d 字节", MaxFileNameBytes)))
	}
	if size <= 0 {
		errs.Add(newError(ErrRequired, "file", "文件为空"))
	} else if maxBytes > 0 && size > maxBytes {
		errs.Add(newError(ErrRange, "file", fmt.Sprintf("文件不能超过 %d MB", maxBytes>>20)))
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	allowed := false
	for _, a := range allowedExt {
		if strings.EqualFold(a, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		errs.Add(newError(ErrFormat, "file", fmt.Sprintf("不支持的文件类型，允许：%s", strings.Join(allowedExt, ", "))))
	}
	return errs.Err()
}

// ManualNotification 手工通知：标题至少 5 个字符，内容至少 10 个字符
func ManualNotification(title, message, typ string) error {
	var errs Errors
	if utf8.RuneCountInString(strings.TrimSpace(title)) < MinNotificationTitle {
		errs.Add(newError(ErrRange, "title", fmt.Sprintf("标题至少 %d 个字符", MinNotificationTitle)))
	}
	if utf8.RuneCountInString(strings.TrimSpace(message)) < MinNotificationMessage {
		errs.Add(newError(ErrRange, "message", fmt.Sprintf("内容至少 %d 个字符", MinNotificationMessage)))
	}
	if typ != "" && !model.IsValidNotificationType(typ) {
		errs.Add(newError(ErrFormat, "type", "通知类型无效"))
	}
	return errs.Err()
}

// ReportPeriod 报表区间：两端都给出时开始须早于结束
func ReportPeriod(start, end *time.Time) error {
	if start != nil && end != nil && !start.Before(*end) {
		return newError(ErrDuration, "end_date", "结束日期必须晚于开始日期")
	}
	return nil
}
