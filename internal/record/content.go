package record

import "time"

// NewsletterContent is the configuration document the PDF newsletter is
// assembled from. AboutUs is Markdown.
type NewsletterContent struct {
	Title            string    `json:"title" yaml:"title"`
	Edition          string    `json:"edition" yaml:"edition"`
	Intro            string    `json:"intro" yaml:"intro"`
	TempStaffing     string    `json:"tempStaffing" yaml:"temp_staffing"`
	RegionalPartners []string  `json:"regionalPartners" yaml:"regional_partners"`
	Defence          string    `json:"defence" yaml:"defence"`
	AboutUs          string    `json:"aboutUs" yaml:"about_us"`
	Footer           []string  `json:"footer" yaml:"footer"`
	Logo             []byte    `json:"logo,omitempty" yaml:"-"`
	LogoMime         string    `json:"logoMime,omitempty" yaml:"-"`
	UpdatedAt        time.Time `json:"updatedAt" yaml:"-"`
}
