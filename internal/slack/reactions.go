package slack

import "strings"

// reactionAliases maps platform reaction names to the Unicode symbols the
// emoji sentiment table is keyed by.
var reactionAliases = map[string]string{
	"+1": "👍", "thumbsup": "👍", "-1": "👎", "thumbsdown": "👎",
	"clap": "👏", "raised_hands": "🙌", "pray": "🙏", "muscle": "💪",
	"ok_hand": "👌", "handshake": "🤝", "crossed_fingers": "🤞", "v": "✌️",
	"heart": "❤️", "broken_heart": "💔", "100": "💯", "fire": "🔥",
	"tada": "🎉", "rocket": "🚀", "star": "⭐", "star2": "🌟", "sparkles": "✨",
	"white_check_mark": "✅", "heavy_check_mark": "✔️", "x": "❌", "warning": "⚠️",
	"eyes": "👀", "thinking_face": "🤔", "bulb": "💡", "trophy": "🏆",
	"smile": "😄", "smiley": "😃", "grinning": "😀", "grin": "😁", "laughing": "😆",
	"sweat_smile": "😅", "joy": "😂", "rolling_on_the_floor_laughing": "🤣",
	"slightly_smiling_face": "🙂", "blush": "😊", "innocent": "😇",
	"heart_eyes": "😍", "star-struck": "🤩", "hugging_face": "🤗",
	"neutral_face": "😐", "expressionless": "😑", "unamused": "😒",
	"face_with_rolling_eyes": "🙄", "grimacing": "😬", "pensive": "😔",
	"confused": "😕", "slightly_frowning_face": "🙁", "white_frowning_face": "☹️",
	"persevere": "😣", "confounded": "😖", "tired_face": "😫", "weary": "😩",
	"cry": "😢", "sob": "😭", "triumph": "😤", "angry": "😠", "rage": "😡",
	"exploding_head": "🤯", "flushed": "😳", "scream": "😱", "fearful": "😨",
	"cold_sweat": "😰", "disappointed_relieved": "😥", "sweat": "😓",
	"sleeping": "😴", "sleepy": "😪", "face_with_head_bandage": "🤕",
	"skull": "💀", "facepalm": "🤦", "shrug": "🤷", "coffee": "☕",
}

// NormalizeReaction converts a platform reaction name to its Unicode
// symbol. Skin tone modifiers are dropped and unknown names pass through.
func NormalizeReaction(name string) string {
	base, _, _ := strings.Cut(strings.Trim(name, ":"), "::")
	if symbol, ok := reactionAliases[base]; ok {
		return symbol
	}
	return base
}
