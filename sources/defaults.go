package sources

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zombar/partfinder/models"
	"github.com/zombar/partfinder/textutil"
)

const (
	searsBase        = "https://www.searspartsdirect.com"
	repairClinicBase = "https://www.repairclinic.com"
)

// searsCDNRe accepts only genuine Sears Scene7 CDN images. Everything else
// on their result tiles (badges, sprites, brand logos) is noise.
var searsCDNRe = regexp.MustCompile(`(?i)^https?://s\.sears\.com/is/image/Sears/`)

var (
	searsPartLinkRe  = regexp.MustCompile(`(?i)/part/|/product/`)
	searsModelLinkRe = regexp.MustCompile(`(?i)/model/`)
)

// lazyImageAttrs is the attribute preference order for lazy-loaded tiles.
var lazyImageAttrs = []string{"data-src", "data-original", "data-srcset", "srcset", "src"}

// Defaults returns the registered catalog sources in iteration order.
func Defaults() []*Source {
	return []*Source{searsPartsDirect(), repairClinic()}
}

func searsPartsDirect() *Source {
	return &Source{
		Name: "SearsPartsDirect",
		SearchURL: func(q string) string {
			return searsBase + "/search?q=" + url.QueryEscape(q)
		},
		Chain: []Strategy{
			Tiles(TileSpec{
				Base:                  searsBase,
				Container:             `.part-card, .product-card, .card, [data-component="product-card"], a[href*="/part/"], a[href*="/product/"]`,
				LinkFilter:            searsPartLinkRe,
				TitleSelectors:        []string{".card-title", ".product-title"},
				PriceSelectors:        []string{".price", "[data-qa=\"price\"]"},
				AvailabilitySelectors: []string{".availability", `[data-qa="availability"]`},
				ImageAttrs:            []string{"src", "data-src", "srcset"},
				ImageFilter:           searsCDNRe,
			}),
			searsModelCards(),
		},
	}
}

// searsModelCards handles model-number queries: the result page shows model
// cards instead of part tiles, each carrying a "Shop parts" link that leads
// to the part list for that model.
func searsModelCards() Strategy {
	return Strategy{
		Name: "model-cards",
		Extract: func(doc *goquery.Document, _ string) []models.RawListing {
			var out []models.RawListing
			doc.Find(`.card, .product-card, [data-component="product-card"]`).Each(func(_ int, el *goquery.Selection) {
				href, _ := el.Find("a[href]").First().Attr("href")
				if href == "" || !searsModelLinkRe.MatchString(href) {
					return
				}

				shop := ""
				el.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
					t := strings.ToLower(textutil.CollapseSpace(a.Text()))
					h, _ := a.Attr("href")
					if h != "" && strings.Contains(t, "shop parts") {
						shop = h
						return false
					}
					return true
				})

				link := Absolutize(href, searsBase)
				if shop != "" {
					link = Absolutize(shop, searsBase)
				}
				title := textutil.CollapseSpace(el.Text())
				if title == "" || link == "" {
					return
				}

				out = append(out, models.RawListing{
					Title:      title,
					Link:       link,
					Image:      filteredImage(el, lazyImageAttrs, searsCDNRe, searsBase),
					PartNumber: PartNumberFrom(title),
					OEM:        DetectOEM(title),
				})
			})
			return out
		},
	}
}

func repairClinic() *Source {
	return &Source{
		Name: "RepairClinic",
		SearchURL: func(q string) string {
			return repairClinicBase + "/Shop-For-Parts?query=" + url.QueryEscape(q)
		},
		Chain: []Strategy{
			Tiles(TileSpec{
				Base:                  repairClinicBase,
				Container:             `[data-qa="product-tile"], [data-automation-id="product-tile"], .product-card, .product-tile, .search-results__grid-item, .product-grid__item`,
				TitleSelectors:        []string{`[data-qa="product-title"]`, ".product-title"},
				PriceSelectors:        []string{`[data-qa="price"]`, ".price"},
				AvailabilitySelectors: []string{`[data-qa="availability"]`, ".availability"},
				ImageAttrs:            lazyImageAttrs,
				TitleAttrFromLink:     true,
			}),
			JSONLD(repairClinicBase),
			NextData(repairClinicBase),
		},
	}
}
