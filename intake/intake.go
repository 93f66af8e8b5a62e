// ABOUTME: Hand-entered lead intake
// ABOUTME: Builds manual leads and parses pasted social-media posts into social leads
package intake

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/harperreed/leadsync/models"
)

var ErrMissingName = errors.New("business name is required")

const (
	DefaultManualAddress = "Manual Entry"
	DefaultSocialAddress = "From Facebook - No address"
	DefaultSocialGroup   = "Facebook Group"
	DefaultBusinessType  = "other"
	maxNameLen           = 100
)

// Manual is the quick-add form.
type Manual struct {
	Name         string   `json:"name"`
	Phone        string   `json:"phone,omitempty"`
	Address      string   `json:"address,omitempty"`
	Website      string   `json:"website,omitempty"`
	Email        string   `json:"email,omitempty"`
	BusinessType string   `json:"businessType,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

// NewManualLead returns a marked lead with a fresh manual_ id.
func NewManualLead(in Manual, addedBy string, now time.Time) (models.Lead, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Lead{}, ErrMissingName
	}
	l := base(models.NewManualID(now), name, addedBy, now)
	l.Source = models.SourceManual
	l.Phone = strings.TrimSpace(in.Phone)
	l.Address = orDefault(in.Address, DefaultManualAddress)
	l.Website = strings.TrimSpace(in.Website)
	l.Email = optional(in.Email)
	l.BusinessType = orDefault(in.BusinessType, DefaultBusinessType)
	l.Notes = strings.TrimSpace(in.Notes)
	l.Lat, l.Lng = in.Lat, in.Lng
	return l, nil
}

// SocialPost is what could be recognized in a pasted post.
type SocialPost struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
	PostURL string `json:"postUrl,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes"`
}

var (
	phonePattern = regexp.MustCompile(`\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\d{10}`)
	emailPattern = regexp.MustCompile(`(?i)[\w.-]+@[\w.-]+\.\w+`)
	urlPattern   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?[\w-]+(?:\.[\w-]+)*\.[a-z]{2,}(?:/\S*)?`)
	nonPhone     = regexp.MustCompile(`[^\d+]`)
	wordPattern  = regexp.MustCompile(`[a-z]+`)
)

var streetWords = map[string]bool{
	"st": true, "street": true, "ave": true, "avenue": true, "rd": true, "road": true,
	"blvd": true, "dr": true, "drive": true, "way": true, "ln": true, "lane": true,
	"suite": true, "ste": true, "apt": true, "unit": true,
}

// ParseSocialPost extracts contact details from free text. The first line is
// taken as the business name unless it holds a phone number or email.
func ParseSocialPost(text string) SocialPost {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}

	post := SocialPost{Notes: "Sourced from Facebook:\n" + strings.TrimSpace(text)}

	if m := phonePattern.FindString(text); m != "" {
		post.Phone = nonPhone.ReplaceAllString(m, "")
	}
	if m := emailPattern.FindString(text); m != "" {
		post.Email = m
	}

	// email domains are not websites
	withoutEmails := emailPattern.ReplaceAllString(text, " ")
	for _, u := range urlPattern.FindAllString(withoutEmails, -1) {
		if strings.Contains(strings.ToLower(u), "facebook.com") {
			if post.PostURL == "" {
				post.PostURL = u
			}
		} else if post.Website == "" {
			post.Website = u
		}
	}

	if len(lines) > 0 && !phonePattern.MatchString(lines[0]) && !emailPattern.MatchString(lines[0]) {
		post.Name = truncate(lines[0], maxNameLen)
	}

	for _, line := range lines {
		if looksLikeAddress(line) {
			post.Address = line
			break
		}
	}
	return post
}

func looksLikeAddress(line string) bool {
	if !strings.ContainsAny(line, "0123456789") {
		return false
	}
	for _, w := range wordPattern.FindAllString(strings.ToLower(line), -1) {
		if streetWords[w] {
			return true
		}
	}
	return false
}

// Social carries a parsed post plus the form fields a user adds.
type Social struct {
	SocialPost
	Group        string `json:"group,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
}

// NewSocialLead returns a marked lead with a fresh fb_ id.
func NewSocialLead(in Social, addedBy string, now time.Time) (models.Lead, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Lead{}, ErrMissingName
	}
	l := base(models.NewSocialID(now), name, addedBy, now)
	l.Source = models.SourceSocial
	l.Phone = strings.TrimSpace(in.Phone)
	l.Address = orDefault(in.Address, DefaultSocialAddress)
	l.Website = strings.TrimSpace(in.Website)
	l.Email = optional(in.Email)
	l.Notes = strings.TrimSpace(in.Notes)
	l.SocialGroup = orDefault(in.Group, DefaultSocialGroup)
	l.SocialPostURL = strings.TrimSpace(in.PostURL)
	l.BusinessType = orDefault(in.BusinessType, DefaultBusinessType)
	return l, nil
}

func base(id, name, addedBy string, now time.Time) models.Lead {
	ms := now.UnixMilli()
	return models.Lead{
		ID:               id,
		Name:             name,
		Status:           models.StatusNew,
		IsLead:           true,
		CallHistory:      []models.CallLog{},
		AddedBy:          orDefault(addedBy, "Unknown"),
		UserRatingsTotal: models.Ptr(0),
		AddedAt:          ms,
		LastUpdated:      ms,
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s != "" {
		return &s
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
