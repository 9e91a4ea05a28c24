package usecase

import "strings"

// VocabularyVersion identifies the built-in lookup tables.
const VocabularyVersion = "2024.2"

// Vocabulary holds the lookup tables used by the query heuristics and the
// relevance scorer. Tests substitute smaller tables.
type Vocabulary struct {
	Version        string
	GarmentNouns   map[string]bool
	FashionTerms   map[string]bool
	ColorNames     map[string]bool
	StopWords      map[string]bool
	Occasions      map[string]string // occasion keyword -> canned multi-garment query
	RefusalPhrases []string
}

// DefaultVocabulary returns the built-in fashion vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Version:        VocabularyVersion,
		GarmentNouns:   toSet(garmentNouns),
		FashionTerms:   toSet(fashionTerms),
		ColorNames:     toSet(colorNames),
		StopWords:      toSet(stopWords),
		Occasions:      occasionQueries,
		RefusalPhrases: refusalPhrases,
	}
}

// IsGarment reports whether token (or its singular form) is a garment noun.
func (v *Vocabulary) IsGarment(token string) bool {
	if v.GarmentNouns[token] {
		return true
	}
	return v.GarmentNouns[singular(token)]
}

// Occasion returns the canned query for token, if token is an occasion keyword.
func (v *Vocabulary) Occasion(token string) (string, bool) {
	if q, ok := v.Occasions[token]; ok {
		return q, true
	}
	q, ok := v.Occasions[singular(token)]
	return q, ok
}

func singular(token string) string {
	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return strings.TrimSuffix(token, "ies") + "y"
	case strings.HasSuffix(token, "es") && (strings.HasSuffix(token, "sses") || strings.HasSuffix(token, "shes")):
		return strings.TrimSuffix(token, "es")
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && len(token) > 3:
		return strings.TrimSuffix(token, "s")
	default:
		return token
	}
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

var garmentNouns = []string{
	// Tops
	"shirt", "t-shirt", "tshirt", "tee", "top", "blouse", "tunic", "sweater", "sweatshirt",
	"hoodie", "cardigan", "jacket", "blazer", "coat", "vest", "tank", "polo", "crop",
	// Bottoms
	"jeans", "trousers", "pants", "chinos", "shorts", "skirt", "leggings", "joggers", "palazzo",
	// Full body
	"dress", "gown", "jumpsuit", "romper", "saree", "sari", "lehenga", "kurta", "kurti",
	"sherwani", "suit", "tracksuit", "dungarees", "anarkali",
	// Footwear
	"shoe", "sneaker", "sandal", "heel", "boot", "loafer", "slipper", "flats", "juttis", "mojari",
	// Accessories
	"bag", "handbag", "backpack", "wallet", "belt", "cap", "hat", "scarf", "stole", "dupatta",
	"watch", "sunglasses", "jewellery", "jewelry", "earring", "necklace", "bracelet",
}

var fashionTerms = []string{
	"cotton", "linen", "silk", "denim", "leather", "wool", "polyester", "rayon", "chiffon",
	"georgette", "velvet", "satin", "knit", "slim", "regular", "oversized", "relaxed", "fitted",
	"casual", "formal", "ethnic", "party", "festive", "printed", "solid", "striped", "checked",
	"floral", "embroidered", "sleeve", "sleeveless", "collar", "neck", "round", "v-neck",
	"men", "mens", "women", "womens", "unisex", "kids", "fit", "style", "fashion", "trendy",
}

var colorNames = []string{
	"red", "blue", "green", "black", "white", "yellow", "pink", "purple", "orange", "brown",
	"grey", "gray", "beige", "navy", "maroon", "olive", "teal", "cream", "gold", "silver",
	"khaki", "mustard", "lavender", "peach", "turquoise", "burgundy", "charcoal", "indigo",
}

var stopWords = []string{
	"a", "an", "the", "and", "or", "of", "in", "on", "at", "to", "for", "with", "by", "from",
	"is", "it", "as", "be", "are", "i", "me", "my", "want", "need", "looking", "show", "find",
	"buy", "some", "any", "please", "like", "good", "best",
}

var occasionQueries = map[string]string{
	"summer":   "summer outfit cotton t-shirt linen shirt shorts sundress",
	"winter":   "winter outfit wool sweater puffer jacket thermal hoodie",
	"monsoon":  "monsoon outfit quick dry jacket waterproof shoes",
	"party":    "party wear dress sequin top blazer heels",
	"office":   "office wear formal shirt trousers blazer",
	"work":     "office wear formal shirt trousers blazer",
	"beach":    "beach outfit swimwear kaftan shorts sandals",
	"weekend":  "weekend casual outfit t-shirt jeans sneakers",
	"formal":   "formal wear suit shirt trousers oxford shoes",
	"casual":   "casual wear t-shirt jeans sneakers hoodie",
	"wedding":  "wedding outfit lehenga sherwani saree kurta",
	"festive":  "festive ethnic wear kurta saree lehenga",
	"date":     "date night outfit dress shirt chinos",
	"gym":      "gym wear track pants sports t-shirt running shoes",
	"travel":   "travel outfit joggers hoodie sneakers backpack",
	"college":  "college casual outfit t-shirt jeans sneakers backpack",
	"vacation": "vacation outfit linen shirt shorts sundress sandals",
}

var refusalPhrases = []string{
	"cannot", "can't", "unable to", "sorry", "i don't see", "i do not see", "no clothing",
	"not able to", "as an ai", "i'm not sure", "there is no", "no fashion", "not clear",
	"i apologize",
}
