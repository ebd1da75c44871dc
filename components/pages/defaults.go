package pages

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Built-in page codes.
const (
	PageHome     = "home"
	PageAbout    = "about"
	PagePrograms = "programs"
	PageImpact   = "impact"
	PageNetwork  = "network"
)

// AssetURL accepts absolute http(s) URLs and site-relative paths returned by uploads.
var AssetURL = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL or a site path")
	}
	return nil
})

func heroSchema() *Schema {
	return NewSchema(
		Field("heading",
			validation.Required.Error("heading is required"),
			validation.RuneLength(3, 120).Error("heading must be between 3 and 120 characters")),
		Field("description", validation.RuneLength(0, 500).Error("description must be at most 500 characters")),
		Field("image", AssetURL),
	)
}

func bannerSlideSchema() *Schema {
	return NewSchema(
		Field("title",
			validation.Required.Error("title is required"),
			validation.RuneLength(3, 100).Error("title must be between 3 and 100 characters")),
		Field("subtitle", validation.RuneLength(0, 200).Error("subtitle must be at most 200 characters")),
		Field("image", validation.Required.Error("image is required"), AssetURL),
		Field("cta_label", validation.RuneLength(0, 40).Error("cta_label must be at most 40 characters")),
		Field("cta_url", is.URL.Error("cta_url must be a valid URL")),
	)
}

func cardSchema() *Schema {
	return NewSchema(
		Field("title",
			validation.Required.Error("title is required"),
			validation.RuneLength(3, 100).Error("title must be between 3 and 100 characters")),
		Field("description",
			validation.Required.Error("description is required"),
			validation.RuneLength(10, 600).Error("description must be between 10 and 600 characters")),
		Field("icon", validation.RuneLength(0, 50).Error("icon must be at most 50 characters")),
		Field("image", AssetURL),
		Field("link", is.URL.Error("link must be a valid URL")),
	)
}

func statisticSchema() *Schema {
	return NewSchema(
		Field("label",
			validation.Required.Error("label is required"),
			validation.RuneLength(2, 60).Error("label must be between 2 and 60 characters")),
		Field("value",
			validation.NotNil.Error("value is required"),
			validation.Min(0.0).Error("value must not be negative")),
		Field("suffix", validation.In("+", "%", "k", "M").Error("suffix must be one of +, %, k, M")),
	)
}

func testimonialSchema() *Schema {
	return NewSchema(
		Field("name",
			validation.Required.Error("name is required"),
			validation.RuneLength(2, 80).Error("name must be between 2 and 80 characters")),
		Field("role", validation.RuneLength(0, 80).Error("role must be at most 80 characters")),
		Field("quote",
			validation.Required.Error("quote is required"),
			validation.RuneLength(10, 600).Error("quote must be between 10 and 600 characters")),
		ExactlyOne("is_video", "video_url", "image"),
		Field("video_url", is.URL.Error("video_url must be a valid URL")),
		Field("image", AssetURL),
	).WithDefaults(Fields{"is_video": false})
}

func contentBlockSchema() *Schema {
	return NewSchema(
		Field("heading",
			validation.Required.Error("heading is required"),
			validation.RuneLength(3, 120).Error("heading must be between 3 and 120 characters")),
		Field("body", validation.Required.Error("body is required")),
		Field("image", AssetURL),
		Field("layout", validation.In("left", "right", "full").Error("layout must be left, right or full")),
	).WithDefaults(Fields{"layout": "full"})
}

func networkItemSchema() *Schema {
	return NewSchema(
		Field("name",
			validation.Required.Error("name is required"),
			validation.RuneLength(2, 100).Error("name must be between 2 and 100 characters")),
		Field("description", validation.RuneLength(0, 400).Error("description must be at most 400 characters")),
		Field("logo", AssetURL),
		Field("website", is.URL.Error("website must be a valid URL")),
		Field("tags", validation.Length(0, 10).Error("at most 10 tags are allowed")),
	)
}

func missionSchema() *Schema {
	return NewSchema(
		Field("heading", validation.Required.Error("heading is required")),
		Field("body",
			validation.Required.Error("body is required"),
			validation.RuneLength(20, 2000).Error("body must be between 20 and 2000 characters")),
	)
}

func fieldsSection(name string, schema *Schema) SectionDefinition {
	return SectionDefinition{Name: name, Kind: SectionFields, Validator: schema}
}

func collectionSection(name string, schema *Schema) SectionDefinition {
	return SectionDefinition{Name: name, Kind: SectionCollection, Validator: schema}
}

func hero(heading, description, image string) map[string]any {
	return map[string]any{"heading": heading, "description": description, "image": image}
}

// DefaultPageDefinitions returns the built-in marketing pages with their default
// documents, used when the backend has nothing stored yet.
func DefaultPageDefinitions() []PageDefinition {
	return []PageDefinition{
		{
			Code:     PageHome,
			Name:     "Home",
			Resource: "/home-page",
			Sections: []SectionDefinition{
				fieldsSection("hero", heroSchema()),
				collectionSection("banner_slides", bannerSlideSchema()),
				collectionSection("programs", cardSchema()),
				collectionSection("statistics", statisticSchema()),
				collectionSection("testimonials", testimonialSchema()),
			},
			Defaults: map[string]any{
				"hero": hero("Building stronger communities together",
					"We partner with local organizations to expand access to education, health and opportunity.",
					"/images/defaults/home-hero.jpg"),
				"banner_slides": []any{
					map[string]any{"title": "Join our volunteers", "subtitle": "Give an hour, change a week.", "image": "/images/defaults/slide-volunteers.jpg", "cta_label": "Get involved", "cta_url": "https://example.org/volunteer"},
				},
				"programs":     []any{},
				"statistics":   defaultStatistics(),
				"testimonials": []any{},
			},
		},
		{
			Code:     PageAbout,
			Name:     "About",
			Resource: "/about-page",
			Sections: []SectionDefinition{
				fieldsSection("hero", heroSchema()),
				fieldsSection("mission", missionSchema()),
				collectionSection("challenges", cardSchema()),
				collectionSection("responses", cardSchema()),
			},
			Defaults: map[string]any{
				"hero": hero("About us", "Who we are and why we do this work.", ""),
				"mission": map[string]any{
					"heading": "Our mission",
					"body":    "To connect people with the resources they need to thrive in their own communities.",
				},
				"challenges": []any{
					map[string]any{"title": "Limited access", "description": "Many families live far from essential services.", "icon": "map"},
				},
				"responses": []any{
					map[string]any{"title": "Mobile outreach", "description": "Our teams bring services directly to neighborhoods.", "icon": "truck"},
				},
			},
		},
		{
			Code:     PagePrograms,
			Name:     "Programs",
			Resource: "/programs-page",
			Sections: []SectionDefinition{
				fieldsSection("hero", heroSchema()),
				collectionSection("programs", cardSchema()),
				collectionSection("content_blocks", contentBlockSchema()),
			},
			Defaults: map[string]any{
				"hero":           hero("Our programs", "Long-term initiatives designed with the communities we serve.", ""),
				"programs":       []any{},
				"content_blocks": []any{},
			},
		},
		{
			Code:     PageImpact,
			Name:     "Impact",
			Resource: "/impact-page",
			Sections: []SectionDefinition{
				fieldsSection("hero", heroSchema()),
				collectionSection("statistics", statisticSchema()),
				collectionSection("testimonials", testimonialSchema()),
				collectionSection("content_blocks", contentBlockSchema()),
			},
			Defaults: map[string]any{
				"hero":           hero("Our impact", "Measured results from every program year.", ""),
				"statistics":     defaultStatistics(),
				"testimonials":   []any{},
				"content_blocks": []any{},
			},
		},
		{
			Code:     PageNetwork,
			Name:     "Network",
			Resource: "/network-page",
			Sections: []SectionDefinition{
				fieldsSection("hero", heroSchema()),
				collectionSection("network_items", networkItemSchema()),
			},
			Defaults: map[string]any{
				"hero":          hero("Our network", "Partners and allies working alongside us.", ""),
				"network_items": []any{},
			},
		},
	}
}

func defaultStatistics() []any {
	return []any{
		map[string]any{"label": "Families served", "value": 1200, "suffix": "+"},
		map[string]any{"label": "Volunteers", "value": 85},
		map[string]any{"label": "Partner organizations", "value": 24},
	}
}
