package romaji

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Romanizer converts native-script text into Latin phonetic tokens.
type Romanizer interface {
	Romanize(text string) ([]string, error)
}

// Func adapts a plain function to Romanizer.
type Func func(text string) ([]string, error)

func (f Func) Romanize(text string) ([]string, error) { return f(text) }

// Kagome reads kanji through the IPA dictionary, then maps the katakana
// readings to Hepburn. Each whitespace-separated field of the input becomes
// one token.
type Kagome struct {
	t *tokenizer.Tokenizer
}

func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}
	return &Kagome{t: t}, nil
}

func (k *Kagome) Romanize(text string) ([]string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, errors.New("romanize: empty text")
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, KanaToRomaji(k.katakana(f)))
	}
	return out, nil
}

// katakana joins the reading of every morpheme, falling back to the surface
// form for words the dictionary has no reading for.
func (k *Kagome) katakana(text string) string {
	var b strings.Builder
	for _, tok := range k.t.Tokenize(text) {
		if r, ok := tok.Reading(); ok && r != "" && r != "*" {
			b.WriteString(r)
			continue
		}
		b.WriteString(tok.Surface)
	}
	return b.String()
}
