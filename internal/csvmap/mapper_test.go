package csvmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoDetectSynonyms(t *testing.T) {
	cases := []struct {
		name    string
		headers []string
		target  Target
		want    string
	}{
		{"underscore separator", []string{"First Name", "Last Name", "Company_Website"}, TargetWebsite, "Company_Website"},
		{"hyphen separator", []string{"company-domain"}, TargetWebsite, "company-domain"},
		{"plain url", []string{"id", "URL"}, TargetWebsite, "URL"},
		{"email address", []string{"Work Email Address"}, TargetEmail, "Work Email Address"},
		{"surname", []string{"Surname"}, TargetLastName, "Surname"},
		{"headcount", []string{"Headcount"}, TargetCompanySize, "Headcount"},
		{"no match stays empty", []string{"foo", "bar"}, TargetWebsite, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := AutoDetect(tc.headers)
			assert.Equal(t, tc.want, m.Get(tc.target))
		})
	}
}

func TestAutoDetectFirstColumnWins(t *testing.T) {
	m := AutoDetect([]string{"Domain", "Company Website", "URL"})
	assert.Equal(t, "Domain", m.Website)
}

func TestInspectEndToEnd(t *testing.T) {
	csv := "Full First,Surname,Domain\nada,lovelace,example.com\n"
	res, err := Inspect(strings.NewReader(csv), ModeEnrichment)
	require.NoError(t, err)

	assert.Equal(t, []string{"Full First", "Surname", "Domain"}, res.Headers)
	assert.Equal(t, "Full First", res.Mapping.FirstName)
	assert.Equal(t, "Surname", res.Mapping.LastName)
	assert.Equal(t, "Domain", res.Mapping.Website)
	assert.Empty(t, res.Mapping.CompanySize)
	// company_size is not in the enrichment required set
	assert.True(t, res.Valid)

	require.Len(t, res.Preview, 1)
	assert.Equal(t, "ada", res.Preview[0]["Full First"])
	assert.Equal(t, "example.com", res.Preview[0]["Domain"])
}

func TestInspectPreviewCapped(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("email\n")
	for i := 0; i < 20; i++ {
		sb.WriteString("a@b.c\n")
	}
	res, err := Inspect(strings.NewReader(sb.String()), ModeVerification)
	require.NoError(t, err)
	assert.Len(t, res.Preview, 5)
	assert.True(t, res.Valid)
}

func TestInspectEmptyFileIsNotAnError(t *testing.T) {
	res, err := Inspect(strings.NewReader(""), ModeEnrichment)
	require.NoError(t, err)
	assert.Empty(t, res.Headers)
	assert.Empty(t, res.Preview)
	assert.False(t, res.Valid)
}

func TestInspectMalformedCSV(t *testing.T) {
	// ragged row: 3 headers, 1 field
	_, err := Inspect(strings.NewReader("a,b,c\nonly-one\n\"broken"), ModeEnrichment)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestValidateRequiredPerMode(t *testing.T) {
	headers := []string{"First Name", "Last Name", "Website", "Email"}
	m := AutoDetect(headers)

	assert.True(t, Validate(m, headers, ModeEnrichment))
	assert.True(t, Validate(m, headers, ModeVerification))

	// verification only needs email
	onlyEmail := Mapping{Email: "Email"}
	assert.True(t, Validate(onlyEmail, headers, ModeVerification))
	assert.False(t, Validate(onlyEmail, headers, ModeEnrichment))
}

func TestValidateRejectsHeaderNotInFile(t *testing.T) {
	headers := []string{"Email"}
	m := Mapping{Email: "E-Mail"}
	assert.False(t, Validate(m, headers, ModeVerification))
}

func TestValidityMonotonicUnderOverride(t *testing.T) {
	headers := []string{"fname", "Last Name", "Website"}
	m := AutoDetect(headers)
	require.Equal(t, "fname", m.FirstName)
	require.True(t, Validate(m, headers, ModeEnrichment))

	// overriding an unrelated optional target never breaks validity
	m.Set(TargetCompanySize, "")
	assert.True(t, Validate(m, headers, ModeEnrichment))

	// clearing a required target is the only way back to invalid
	m.Set(TargetFirstName, "")
	assert.False(t, Validate(m, headers, ModeEnrichment))

	m.Set(TargetFirstName, "fname")
	assert.True(t, Validate(m, headers, ModeEnrichment))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "companywebsite", normalizeHeader(" Company_Web-Site "))
	assert.Equal(t, "email", normalizeHeader("E MAIL"))
}
