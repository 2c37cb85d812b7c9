// Package hint detects and enriches teacher hint phrases in lecture
// transcripts.
//
// Detection is a two-stage affair: a cheap keyword classifier decides whether
// a finalized transcript segment contains a hint phrase at all, and only
// matched segments are sent to the LLM for concept enrichment.
package hint

import (
	"strings"

	"github.com/courseai/courseai/pkg/courselog"
)

// category pairs a hint type with its trigger phrases.
type category struct {
	hintType courselog.HintType
	patterns []string
}

// categories is evaluated in order; the first category containing a matching
// pattern wins, so exam-related phrases take precedence over the broader
// importance and attention phrases.
var categories = []category{
	{
		hintType: courselog.HintExam,
		patterns: []string{
			"會考", "考試", "期中考", "期末考", "考試重點", "必考",
			"一定會考", "這個會考", "考試會出",
		},
	},
	{
		hintType: courselog.HintImportant,
		patterns: []string{
			"很重要", "重點", "一定要", "關鍵", "核心",
			"特別重要", "非常重要", "務必", "千萬",
		},
	},
	{
		hintType: courselog.HintAttention,
		patterns: []string{
			"注意", "小心", "要特別", "留意", "記住",
			"要注意", "特別注意", "請注意",
		},
	},
	{
		hintType: courselog.HintCommonMistake,
		patterns: []string{
			"常錯", "常犯", "容易錯", "大家都", "注意不要",
			"常見錯誤", "容易搞錯", "不要搞混",
		},
	},
	{
		hintType: courselog.HintReminder,
		patterns: []string{
			"記得", "要複習", "回去看", "下次",
			"記得要", "別忘了", "要記住",
		},
	},
}

// Detect reports the hint type of the first category whose patterns match
// text, and whether any matched at all. Detection is a pure substring scan
// and never modifies text.
func Detect(text string) (courselog.HintType, bool) {
	for _, cat := range categories {
		for _, pattern := range cat.patterns {
			if strings.Contains(text, pattern) {
				return cat.hintType, true
			}
		}
	}
	return "", false
}
