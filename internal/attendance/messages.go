package attendance

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the English wording.
const (
	msgAllPresent     = "✅ No missing reports for the %s~%s window!"
	msgAbsentSummary  = "⏰ These members have not written their report yet!\n%s"
	msgDirectReminder = "No report from you was found between %s and %s today. Please don't forget to write it!"
	msgRunSummary     = "Check finished for %s~%s: %d eligible, %d absent, %d reminders delivered, %d failed."
	msgRunFailed      = "Check failed: %s"
	msgAdminOnly      = "You need Administrator permissions to run this command."
)

var (
	supportedLocales = []language.Tag{language.Korean, language.English}
	localeMatcher    = language.NewMatcher(supportedLocales)
	texts            = newCatalog()
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Korean))

	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	for _, key := range []string{
		msgAllPresent, msgAbsentSummary, msgDirectReminder, msgRunSummary, msgRunFailed, msgAdminOnly,
	} {
		set(language.English, key, key)
	}

	set(language.Korean, msgAllPresent, "✅ 오늘(%s~%s) 주간보고 미제출자는 없습니다!")
	set(language.Korean, msgAbsentSummary, "⏰ 아직 주간보고를 작성하지 않은 분들입니다!\n%s")
	set(language.Korean, msgDirectReminder, "오늘 %s~%s 사이 주간보고가 확인되지 않았습니다. 잊지 말고 작성해주세요!")
	set(language.Korean, msgRunSummary, "%s~%s 확인 완료: 대상 %d명, 미제출 %d명, DM 전송 %d건, 실패 %d건.")
	set(language.Korean, msgRunFailed, "확인에 실패했습니다: %s")
	set(language.Korean, msgAdminOnly, "이 명령은 관리자만 사용할 수 있습니다.")

	return b
}

// Texts renders user facing messages in one locale.
type Texts struct {
	printer *message.Printer
}

// NewTexts returns texts for the closest supported locale. Unknown locales
// fall back to Korean.
func NewTexts(locale string) Texts {
	tag := language.Korean
	if parsed, err := language.Parse(locale); err == nil {
		_, idx, confidence := localeMatcher.Match(parsed)
		if confidence != language.No {
			tag = supportedLocales[idx]
		}
	}

	return Texts{printer: message.NewPrinter(tag, message.Catalog(texts))}
}

// AllPresent is posted when nobody is missing.
func (t Texts) AllPresent(w Window) string {
	return t.printer.Sprintf(msgAllPresent, formatClock(w.Start), formatClock(w.End))
}

// AbsentSummary is posted to the channel with a mention per absentee.
func (t Texts) AbsentSummary(absentees []Member) string {
	mentions := make([]string, len(absentees))
	for i, member := range absentees {
		mentions[i] = member.Mention()
	}

	return t.printer.Sprintf(msgAbsentSummary, strings.Join(mentions, " "))
}

// DirectReminder is sent privately to each absentee.
func (t Texts) DirectReminder(w Window) string {
	return t.printer.Sprintf(msgDirectReminder, formatClock(w.Start), formatClock(w.End))
}

// RunSummary describes a finished check.
func (t Texts) RunSummary(r *Report) string {
	return t.printer.Sprintf(msgRunSummary,
		formatClock(r.Window.Start), formatClock(r.Window.End), r.Eligible, len(r.Absentees), r.Delivered, r.Failed)
}

// RunFailed describes an aborted check.
func (t Texts) RunFailed(err error) string {
	return t.printer.Sprintf(msgRunFailed, err.Error())
}

// AdminOnly refuses a command to a non administrator.
func (t Texts) AdminOnly() string {
	return t.printer.Sprintf(msgAdminOnly)
}
