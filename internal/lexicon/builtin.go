package lexicon

// MaxPhraseTokens is the longest phrase, in whitespace-separated tokens, that
// a dictionary key may contain.
const MaxPhraseTokens = 5

// Builtin is the shipped abbreviation table for Vietnamese chat. Keys are
// lowercase. User overrides take precedence on collision.
var Builtin = map[string]string{
	"vl":  "vãi lờ",
	"vcl": "vãi cả lờ",
	"cc":  "con cặc",
	"dm":  "địt mẹ",
	"thg": "thằng",
	"m":   "mày",
	"ko":  "không",
	"k":   "không",
	"dc":  "được",
	"bh":  "bây giờ",
	"j":   "gì",
	"r":   "rồi",
	"lm":  "làm",
	"ns":  "nói",
	"de":  "để",
	"vao": "vào",
	"day": "đây",
	"no":  "nó",
	"v":   "vờ",
}
