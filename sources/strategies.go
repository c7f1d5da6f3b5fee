package sources

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zombar/partfinder/models"
	"github.com/zombar/partfinder/textutil"
)

// TileSpec is the data half of a visible-markup strategy: every selector and
// attribute a supplier's result grid needs lives here, so the extraction code
// below stays source-agnostic.
type TileSpec struct {
	Base                  string
	Container             string
	LinkFilter            *regexp.Regexp
	TitleSelectors        []string
	PriceSelectors        []string
	AvailabilitySelectors []string
	ImageAttrs            []string
	ImageFilter           *regexp.Regexp
	TitleAttrFromLink     bool
}

// Tiles builds a strategy that walks the supplier's visible result tiles.
func Tiles(spec TileSpec) Strategy {
	return Strategy{
		Name: "tiles",
		Extract: func(doc *goquery.Document, _ string) []models.RawListing {
			var out []models.RawListing
			doc.Find(spec.Container).Each(func(_ int, el *goquery.Selection) {
				a := el
				if !el.Is("a") {
					a = el.Find("a[href]").First()
				}
				href, _ := a.Attr("href")
				if href == "" {
					return
				}
				if spec.LinkFilter != nil && !spec.LinkFilter.MatchString(href) {
					return
				}

				titleVals := make([]string, 0, len(spec.TitleSelectors)+2)
				for _, sel := range spec.TitleSelectors {
					titleVals = append(titleVals, el.Find(sel).First().Text())
				}
				if spec.TitleAttrFromLink {
					if t, ok := a.Attr("title"); ok {
						titleVals = append(titleVals, t)
					}
				}
				titleVals = append(titleVals, el.Text())
				title := firstNonEmpty(titleVals...)

				link := Absolutize(href, spec.Base)
				if title == "" || link == "" {
					return
				}

				var image string
				if spec.ImageFilter != nil {
					image = filteredImage(el, spec.ImageAttrs, spec.ImageFilter, spec.Base)
				} else {
					image = imageFromAttrs(el, spec.ImageAttrs, spec.Base)
				}

				var price string
				for _, sel := range spec.PriceSelectors {
					if price = textutil.CollapseSpace(el.Find(sel).First().Text()); price != "" {
						break
					}
				}
				var availability string
				for _, sel := range spec.AvailabilitySelectors {
					if availability = textutil.CollapseSpace(el.Find(sel).First().Text()); availability != "" {
						break
					}
				}

				out = append(out, models.RawListing{
					Title:        title,
					Link:         link,
					Image:        image,
					Price:        price,
					Currency:     currencyOf(price),
					PartNumber:   PartNumberFrom(title),
					Availability: availability,
					OEM:          DetectOEM(title),
				})
			})
			return out
		},
	}
}

// jsonLDProduct is the subset of a schema.org Product block we consume.
type jsonLDProduct struct {
	Type            string          `json:"@type"`
	Name            string          `json:"name"`
	Title           string          `json:"title"`
	Image           json.RawMessage `json:"image"`
	URL             string          `json:"url"`
	ProductURL      string          `json:"productUrl"`
	CanonicalURL    string          `json:"canonicalUrl"`
	Graph           []jsonLDProduct `json:"@graph"`
	ItemListElement []struct {
		Item *jsonLDProduct `json:"item"`
	} `json:"itemListElement"`
}

func (p *jsonLDProduct) imageURL() string {
	if len(p.Image) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(p.Image, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(p.Image, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// JSONLD builds a strategy over the structured-data blocks embedded in the
// page. Tried after visible markup because listing grids are routinely
// rendered client-side while the JSON-LD stays server-rendered.
func JSONLD(base string) Strategy {
	return Strategy{
		Name: "json-ld",
		Extract: func(doc *goquery.Document, _ string) []models.RawListing {
			var out []models.RawListing
			doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, el *goquery.Selection) {
				txt := strings.TrimSpace(el.Text())
				if txt == "" {
					return
				}

				var blocks []jsonLDProduct
				var one jsonLDProduct
				if err := json.Unmarshal([]byte(txt), &one); err == nil {
					blocks = append(blocks, one)
				} else if err := json.Unmarshal([]byte(txt), &blocks); err != nil {
					return
				}

				for _, b := range blocks {
					products := collectProducts(b)
					for _, p := range products {
						title := firstNonEmpty(p.Name, p.Title)
						link := Absolutize(firstNonEmpty(p.URL, p.ProductURL, p.CanonicalURL), base)
						if title == "" || link == "" {
							continue
						}
						out = append(out, models.RawListing{
							Title:      title,
							Link:       link,
							Image:      Absolutize(p.imageURL(), base),
							PartNumber: PartNumberFrom(title),
							OEM:        DetectOEM(title),
						})
					}
				}
			})
			return out
		},
	}
}

func collectProducts(b jsonLDProduct) []jsonLDProduct {
	var products []jsonLDProduct
	if b.Type == "Product" {
		products = append(products, b)
	}
	for _, g := range b.Graph {
		if g.Type == "Product" {
			products = append(products, g)
		}
	}
	for _, e := range b.ItemListElement {
		if e.Item != nil && (e.Item.Type == "Product" || e.Item.Name != "") {
			products = append(products, *e.Item)
		}
	}
	return products
}

// NextData builds a strategy over the __NEXT_DATA__ state blob. Last resort:
// the blob's shape is undocumented and changes between deployments, so this
// walks the whole tree for anything listing-shaped.
func NextData(base string) Strategy {
	return Strategy{
		Name: "next-data",
		Extract: func(doc *goquery.Document, _ string) []models.RawListing {
			txt := strings.TrimSpace(doc.Find("#__NEXT_DATA__").First().Text())
			if txt == "" {
				return nil
			}

			var data interface{}
			if err := json.Unmarshal([]byte(txt), &data); err != nil {
				return nil
			}

			var out []models.RawListing
			seen := make(map[string]bool)
			walkState(data, func(node map[string]interface{}) {
				title := firstNonEmpty(str(node["name"]), str(node["title"]), str(node["productTitle"]), str(node["partTitle"]))
				link := firstNonEmpty(str(node["url"]), str(node["productUrl"]), str(node["canonicalUrl"]), str(node["href"]))
				image := firstNonEmpty(str(node["image"]), str(node["imageUrl"]), str(node["imageURL"]))
				if title == "" || link == "" {
					return
				}
				abs := Absolutize(link, base)
				if abs == "" || seen[abs] {
					return
				}
				seen[abs] = true
				out = append(out, models.RawListing{
					Title:      title,
					Link:       abs,
					Image:      Absolutize(image, base),
					PartNumber: PartNumberFrom(title),
					OEM:        DetectOEM(title),
				})
			})
			return out
		},
	}
}

func walkState(node interface{}, cb func(map[string]interface{})) {
	switch n := node.(type) {
	case []interface{}:
		for _, v := range n {
			walkState(v, cb)
		}
	case map[string]interface{}:
		cb(n)
		for _, v := range n {
			walkState(v, cb)
		}
	}
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
