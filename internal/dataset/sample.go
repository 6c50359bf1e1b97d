package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// SampleHeader is the column layout of SampleCorpus.
var SampleHeader = []string{
	ColProductName, ColBrandName, ColPrimaryCategory, ColSecondaryCategory, ColTertiaryCategory,
	ColPrice, ColValuePrice, ColSalePrice,
	ColExclusive, ColLimitedEdition, ColNew, ColOnlineOnly, ColOutOfStock,
	ColRating, ColReviews, ColLoves,
}

var sampleCategories = []struct {
	primary, secondary string
	tertiary           []string
	basePrice          float64
}{
	{"Skincare", "Moisturizers", []string{"Face Creams", "Face Oils"}, 48},
	{"Skincare", "Treatments", []string{"Face Serums", "Facial Peels"}, 62},
	{"Makeup", "Lip", []string{"Lipstick", "Lip Gloss", "Lip Oil"}, 24},
	{"Makeup", "Face", []string{"Foundation", "Concealer"}, 38},
	{"Fragrance", "Women", []string{"Perfume", "Rollerballs"}, 95},
	{"Hair", "Shampoo & Conditioner", []string{"Shampoo", "Conditioner"}, 30},
}

// sampleBrand carries the latent traits a brand imprints on its products:
// quality drives rating, buzz drives popularity, premium scales price.
type sampleBrand struct {
	name    string
	quality float64
	buzz    float64
	premium float64
}

var sampleBrands = []sampleBrand{
	{"Dior", 0.3, 1.2, 1.8},
	{"The Ordinary", 0.4, 0.9, 0.3},
	{"Glossier", -0.2, 1.1, 0.8},
	{"Drunk Elephant", -0.1, 0.8, 1.4},
	{"Tatcha", 0.5, 0.2, 1.6},
	{"Fenty Beauty", 0.1, 1.0, 0.9},
	{"Ilia", 0.4, -0.6, 1.0},
	{"Kosas", 0.3, -0.3, 0.9},
	{"Sol de Janeiro", -0.3, 0.7, 1.0},
	{"Briogeo", -0.4, -0.2, 0.9},
	{"Summer Fridays", 0.0, 0.4, 1.0},
	{"Youth To The People", 0.2, -0.8, 1.1},
}

// SampleCorpus generates n synthetic products with realistic structure for
// trying the pipeline without the real export. Equal seeds produce equal
// corpora. Roughly one product in twenty misses its rating signals and some
// optional cells are left empty.
func SampleCorpus(n int, seed uint64) *Table {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	t := NewTable(append([]string(nil), SampleHeader...))

	for i := range n {
		brand := sampleBrands[rng.IntN(len(sampleBrands))]
		cat := sampleCategories[rng.IntN(len(sampleCategories))]

		r := Record{
			ColProductName:       fmt.Sprintf("%s %s No. %d", brand.name, cat.tertiary[0], i+1),
			ColBrandName:         brand.name,
			ColPrimaryCategory:   cat.primary,
			ColSecondaryCategory: cat.secondary,
			ColTertiaryCategory:  cat.tertiary[rng.IntN(len(cat.tertiary))],
		}
		if rng.Float64() < 0.05 {
			r[ColSecondaryCategory] = ""
		}

		price := cat.basePrice * brand.premium * math.Exp(rng.NormFloat64()*0.35)
		price = math.Max(4, math.Round(price))
		r[ColPrice] = formatFloat(price)
		r[ColValuePrice] = ""
		if rng.Float64() < 0.15 {
			r[ColValuePrice] = formatFloat(math.Round(price * (1.2 + rng.Float64()*0.5)))
		}
		r[ColSalePrice] = ""
		if rng.Float64() < 0.1 {
			r[ColSalePrice] = formatFloat(math.Round(price * (0.6 + rng.Float64()*0.3)))
		}

		limited := rng.Float64() < 0.08
		isNew := rng.Float64() < 0.12
		r[ColExclusive] = flag(rng.Float64() < 0.3)
		r[ColLimitedEdition] = flag(limited)
		r[ColNew] = flag(isNew)
		r[ColOnlineOnly] = flag(rng.Float64() < 0.2)
		r[ColOutOfStock] = flag(rng.Float64() < 0.07)

		buzz := brand.buzz + rng.NormFloat64()*0.8
		if limited {
			buzz += 0.5
		}
		if isNew {
			buzz -= 0.7
		}
		loves := math.Round(math.Exp(8.5 + buzz*1.3))
		reviews := math.Round(loves * (0.02 + rng.Float64()*0.06))
		rating := 4.1 + brand.quality*0.6 - buzz*0.08 + rng.NormFloat64()*0.3
		rating = math.Round(math.Min(5, math.Max(1, rating))*100) / 100

		r[ColRating] = formatFloat(rating)
		r[ColReviews] = formatFloat(reviews)
		r[ColLoves] = formatFloat(loves)
		if rng.Float64() < 0.05 {
			r[ColRating] = ""
			r[ColReviews] = ""
		}

		t.Append(r)
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
