// Package timeutil 日历日期工具
//
// 业务中的 "日期"（出生日期、实习起止、提醒窗口）都是不带时分秒的日历日期。
// 统一用 UTC 零点的 time.Time 表示，比较与相减时不受夏令时和服务器时区影响；
// "今天" 则由机构时区决定，见 Today。
package timeutil

import (
	"time"
)

// DateLayout 日期的文本格式
const DateLayout = "2006-01-02"

// Date 构造 UTC 零点的日历日期
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf 取 t 在 loc 时区下的日历日期
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Date(local.Year(), local.Month(), local.Day())
}

// Today 机构时区下的今天
func Today(loc *time.Location) time.Time {
	return DateOf(time.Now(), loc)
}

// Normalize 丢弃时分秒，保留 t 自身时区下的年月日
func Normalize(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// AddDays 日历日期加减天数
func AddDays(d time.Time, n int) time.Time {
	return Normalize(d).AddDate(0, 0, n)
}

// DaysBetween 返回 to - from 的日历天数，可为负
func DaysBetween(from, to time.Time) int {
	return int(Normalize(to).Sub(Normalize(from)).Hours() / 24)
}

// AgeOn 按年/月/日比较计算周岁，而非按经过天数折算
func AgeOn(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() ||
		(today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// StartOfMonth 所在月份的第一天
func StartOfMonth(d time.Time) time.Time {
	return Date(d.Year(), d.Month(), 1)
}

// Format 按 YYYY-MM-DD 输出
func Format(d time.Time) string {
	return d.Format(DateLayout)
}

// Parse 解析 YYYY-MM-DD
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
