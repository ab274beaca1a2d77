package sentiment

import (
	"github.com/samber/mo"

	"github.com/edgard/teampulse/internal/domain"
)

// EmojiTable is a read-only lookup from an emoji symbol to a sentiment weight in [-1, 1].
type EmojiTable struct {
	weights map[string]float64
}

// NewEmojiTable returns the built-in table. Callers construct it once at startup and share it.
func NewEmojiTable() *EmojiTable {
	weights := make(map[string]float64, len(defaultEmojiWeights))
	for k, v := range defaultEmojiWeights {
		weights[k] = v
	}
	return &EmojiTable{weights: weights}
}

// NewEmojiTableFrom builds a table from an explicit mapping. Weights are clamped to [-1, 1].
func NewEmojiTableFrom(weights map[string]float64) *EmojiTable {
	t := &EmojiTable{weights: make(map[string]float64, len(weights))}
	for k, v := range weights {
		t.weights[k] = domain.Clamp(v, -1, 1)
	}
	return t
}

// Weight returns the sentiment weight of emoji, if mapped.
func (t *EmojiTable) Weight(emoji string) (float64, bool) {
	w, ok := t.weights[emoji]
	return w, ok
}

// WeightOrZero is Weight with unmapped symbols reported as 0.
func (t *EmojiTable) WeightOrZero(emoji string) float64 {
	return t.weights[emoji]
}

// Len reports the number of mapped symbols.
func (t *EmojiTable) Len() int {
	return len(t.weights)
}

// ReactionSentiment is the count-weighted mean weight of the mapped reactions.
// It is None when there are no reactions or none of them is mapped.
func (t *EmojiTable) ReactionSentiment(reactions []domain.ReactionCount) mo.Option[float64] {
	var total float64
	var weight int
	for _, r := range reactions {
		if r.Count <= 0 {
			continue
		}
		w, ok := t.weights[r.Emoji]
		if !ok {
			continue
		}
		total += w * float64(r.Count)
		weight += r.Count
	}
	if weight == 0 {
		return mo.None[float64]()
	}
	return mo.Some(total / float64(weight))
}

var defaultEmojiWeights = map[string]float64{
	// faces, hands, hearts
	"😀": 0.8, "😃": 0.8, "😄": 0.9, "😁": 0.8, "😆": 0.7, "😅": 0.6,
	"🤣": 0.7, "😂": 0.7, "🙂": 0.6, "😊": 0.8, "😇": 0.8, "🥰": 0.9,
	"😍": 0.9, "🤩": 0.8, "😘": 0.7, "😗": 0.6, "😚": 0.7, "😙": 0.6,
	"🥲": 0.4, "😋": 0.7, "😛": 0.6, "😜": 0.7, "🤪": 0.6, "😝": 0.6,
	"🤑": 0.5, "🤗": 0.8, "🤭": 0.5, "🤫": 0.3, "🤔": 0.2, "🤐": 0.1,
	"🤨": 0.0, "😐": 0.0, "😑": -0.1, "😶": 0.0, "😏": 0.3, "😒": -0.3,
	"🙄": -0.4, "😬": -0.2, "🤥": -0.3, "😔": -0.6, "😕": -0.5, "🙁": -0.5,
	"☹️": -0.6, "😣": -0.5, "😖": -0.5, "😫": -0.7, "😩": -0.7, "🥺": -0.3,
	"😢": -0.8, "😭": -0.8, "😤": -0.4, "😠": -0.8, "😡": -0.9, "🤬": -0.9,
	"🤯": -0.6, "😳": -0.2, "🥵": -0.3, "🥶": -0.3, "😱": -0.7, "😨": -0.7,
	"😰": -0.8, "😥": -0.6, "😓": -0.5, "🤝": 0.7, "👍": 0.7, "👎": -0.7,
	"👌": 0.6, "🤞": 0.5, "✌️": 0.6, "🤟": 0.7, "🤘": 0.6, "👏": 0.8,
	"🙌": 0.9, "👐": 0.5, "🤲": 0.6, "🙏": 0.7, "✍️": 0.4, "💪": 0.8,
	"🦾": 0.7, "🦿": 0.3, "🦵": 0.2, "🦶": 0.1, "👂": 0.1, "🧠": 0.5,
	"🫀": 0.4, "🫁": 0.2, "🦷": 0.1, "🦴": 0.0, "👀": 0.2, "👁️": 0.1,
	"👅": 0.2, "👄": 0.3, "💋": 0.6, "🩸": -0.3, "💔": -0.9, "❤️": 0.9,
	"🧡": 0.8, "💛": 0.8, "💚": 0.8, "💙": 0.8, "💜": 0.8, "🤎": 0.5,
	"🖤": 0.3, "🤍": 0.7, "💯": 0.9, "💢": -0.7, "💥": -0.2, "💫": 0.6,
	"💦": 0.1, "💨": 0.2, "🕳️": -0.4, "💣": -0.8, "💬": 0.3, "👁️‍🗨️": 0.2,
	"🗨️": 0.3, "🗯️": -0.2, "💭": 0.4, "💤": 0.2,

	// work and office
	"💻": 0.3, "⌨️": 0.2, "🖥️": 0.2, "🖨️": 0.1, "🖱️": 0.1, "🖲️": 0.1,
	"💽": 0.1, "💾": 0.1, "💿": 0.1, "📀": 0.1, "🧮": 0.2, "🎬": 0.4,
	"📺": 0.2, "📷": 0.4, "📸": 0.4, "📹": 0.3, "📼": 0.2, "🔍": 0.3,
	"🔎": 0.3, "🕯️": 0.4, "💡": 0.7, "🔦": 0.3, "🏮": 0.5, "🪔": 0.4,
	"📔": 0.4, "📕": 0.3, "📖": 0.5, "📗": 0.4, "📘": 0.4, "📙": 0.4,
	"📚": 0.6, "📓": 0.4, "📒": 0.4, "📃": 0.2, "📜": 0.3, "📄": 0.2,
	"📰": 0.3, "🗞️": 0.2, "📑": 0.2, "🔖": 0.3, "🏷️": 0.2, "💰": 0.6,
	"🪙": 0.5, "💴": 0.4, "💵": 0.5, "💶": 0.4, "💷": 0.4, "💸": -0.3,
	"💳": 0.2, "🧾": 0.1, "💹": 0.7, "✉️": 0.3, "📧": 0.3, "📨": 0.4,
	"📩": 0.4, "📤": 0.3, "📥": 0.3, "📦": 0.3, "📫": 0.4, "📪": 0.2,
	"📬": 0.4, "📭": 0.2, "📮": 0.3, "🗳️": 0.5, "✏️": 0.4, "✒️": 0.3,
	"🖋️": 0.4, "🖊️": 0.3, "🖌️": 0.5, "🖍️": 0.4, "📝": 0.4, "💼": 0.4,
	"📁": 0.3, "📂": 0.3, "🗂️": 0.3, "📅": 0.4, "📆": 0.4, "🗒️": 0.3,
	"🗓️": 0.4, "📇": 0.3, "📈": 0.8, "📉": -0.5, "📊": 0.5, "📋": 0.4,
	"📌": 0.3, "📍": 0.3, "📎": 0.2, "🖇️": 0.2, "📏": 0.2, "📐": 0.2,
	"✂️": -0.1, "🗃️": 0.2, "🗄️": 0.2, "🗑️": -0.2, "🔒": 0.2, "🔓": 0.1,
	"🔏": 0.3, "🔐": 0.4, "🔑": 0.5, "🗝️": 0.4, "🔨": 0.2, "🪓": -0.1,
	"⛏️": 0.1, "⚒️": 0.2, "🛠️": 0.4, "🗡️": -0.3, "⚔️": -0.4, "🔫": -0.8,
	"🪃": 0.1, "🏹": 0.2, "🛡️": 0.4, "🪚": 0.1, "🔧": 0.3, "🪛": 0.2,
	"🔩": 0.2, "⚙️": 0.3, "🗜️": 0.1, "⚖️": 0.5, "🦯": 0.2, "🔗": 0.4,
	"⛓️": -0.2, "🪝": 0.1, "🧰": 0.4, "🧲": 0.3, "🪜": 0.2, "⚗️": 0.4,
	"🧪": 0.4, "🧫": 0.2, "🧬": 0.5, "🔬": 0.5, "🔭": 0.6, "📡": 0.4,
}
