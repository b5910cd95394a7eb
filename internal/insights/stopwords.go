package insights

var stopwordLists = map[string][]string{
	"en": {
		"the", "and", "of", "to", "in", "is", "it", "that", "this", "with", "for", "was", "are", "be",
		"on", "as", "at", "by", "from", "have", "has", "not", "but", "or", "which", "very", "were",
		"they", "their", "you", "we", "an", "been", "will", "can", "would", "there", "these", "those",
		"into", "about", "than", "then", "also", "its", "our", "such", "all", "any", "may",
	},
	"es": {
		"el", "la", "los", "las", "y", "de", "que", "en", "un", "una", "por", "con", "para", "es",
		"muy", "del", "al", "porque", "pero", "como", "más", "se", "su", "sus", "lo", "no", "este",
		"esta", "estos", "son", "fue", "hay", "también", "entre", "cuando", "sobre",
	},
	"fr": {
		"le", "la", "les", "et", "de", "des", "du", "un", "une", "est", "dans", "pour", "que", "qui",
		"sur", "avec", "pas", "nous", "vous", "ils", "elles", "sont", "leurs", "leur", "ce", "cette",
		"au", "aux", "pendant", "mais", "ou", "être", "aussi", "très", "comme", "ces",
	},
	"de": {
		"der", "die", "das", "und", "den", "dem", "des", "ein", "eine", "ist", "nicht", "mit", "sich",
		"auf", "für", "von", "zu", "sie", "es", "sind", "sehr", "weil", "auch", "wie", "wir", "ich",
		"aber", "durch", "im", "wird", "werden", "oder", "einer", "noch", "nach", "bei",
	},
	"pt": {
		"o", "os", "a", "as", "e", "de", "do", "da", "dos", "das", "que", "em", "um", "uma", "com",
		"não", "por", "para", "pelo", "pela", "é", "está", "estão", "muito", "mas", "como", "elas",
		"eles", "mais", "também", "são", "foi", "isso", "ao", "aos", "na", "no",
	},
	"it": {
		"il", "lo", "la", "i", "gli", "le", "e", "di", "del", "della", "che", "un", "una", "non",
		"per", "con", "sono", "è", "nel", "nella", "molto", "perché", "ma", "come", "anche", "dei",
		"degli", "alla", "questo", "questa", "essere", "ci", "più", "tra",
	},
}

// Languages lists the codes Detect can return besides LanguageUnknown.
var Languages = []string{"en", "es", "fr", "de", "pt", "it"}

var (
	stopwordsByLang = map[string]map[string]struct{}{}
	allStopwords    = map[string]struct{}{}
)

func init() {
	for lang, words := range stopwordLists {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
			allStopwords[w] = struct{}{}
		}
		stopwordsByLang[lang] = set
	}
}

// IsStopword reports whether w is a stopword in any supported language.
func IsStopword(w string) bool {
	_, ok := allStopwords[w]
	return ok
}
