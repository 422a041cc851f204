package contacts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-service/internal/modal"
)

func TestImportAliasesAndValidation(t *testing.T) {
	csv := `Full Name,Email_Address,Account Name,Job Title,Industry
Ada Lovelace,ADA@Example.com ,Analytical Engines,CTO,Manufacturing
,nobody@example.com,Ghost Co,,
Bob,not-an-email,Acme,,
Ada Again,ada@example.com,Analytical Engines,CEO,

Grace Hopper,grace@navy.mil,US Navy,Rear Admiral,Defense
`
	res, err := Import(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Rows)
	require.Len(t, res.Contacts, 2)
	require.Len(t, res.Rejected, 3)

	ada := res.Contacts[0]
	assert.Equal(t, "Ada Lovelace", ada.Name)
	assert.Equal(t, "ada@example.com", ada.Email)
	assert.Equal(t, "Analytical Engines", ada.Company)
	assert.Equal(t, "CTO", ada.Role)
	assert.Equal(t, "Manufacturing", ada.Field("industry"))
	assert.Equal(t, modal.ContactID("ada@example.com"), ada.ID)

	assert.Equal(t, 3, res.Rejected[0].Line)
	assert.Contains(t, res.Rejected[0].Errors, "missing required field: name")
	assert.Contains(t, res.Rejected[1].Errors[0], "invalid email format")
	assert.Contains(t, res.Rejected[2].Errors[0], "duplicate email")
}

func TestImportFirstLastName(t *testing.T) {
	csv := "first_name,last_name,email,company\nLinus,Torvalds,linus@kernel.org,Linux Foundation\n"
	res, err := Import(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Linus Torvalds", res.Contacts[0].Name)
	assert.Equal(t, "Linus", res.Contacts[0].FirstName())
}

func TestImportEmpty(t *testing.T) {
	_, err := Import(strings.NewReader(""))
	assert.ErrorIs(t, err, modal.ErrInvalidInput)
}

func TestImportShortRowsAreTolerated(t *testing.T) {
	csv := "name,email,company,role\nJane Doe,jane@example.com\n"
	res, err := Import(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "", res.Contacts[0].Company)
}

func TestValidateStructuredContacts(t *testing.T) {
	res := Validate([]modal.Contact{
		{Name: "Ada Lovelace", Email: " ADA@Analytical.io", Company: "Analytical", Role: "CTO"},
		{Name: "Nobody", Email: "not-an-email"},
		{Name: "A", Email: "a@b.io"},
		{Name: "Ada Again", Email: "ada@analytical.io"},
		{Name: "Grace Hopper", Email: "grace@navy.mil", RawFields: map[string]string{"Industry": "Defense"}},
	})

	assert.Equal(t, 5, res.Rows)
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "ada@analytical.io", res.Contacts[0].Email)
	assert.Equal(t, modal.ContactID("ada@analytical.io"), res.Contacts[0].ID)
	assert.Equal(t, "CTO", res.Contacts[0].Role)
	assert.Equal(t, "Defense", res.Contacts[1].RawFields["industry"])

	require.Len(t, res.Rejected, 3)
	assert.Equal(t, 2, res.Rejected[0].Line)
	assert.Contains(t, res.Rejected[0].Errors, "invalid email format: not-an-email")
	assert.Equal(t, 3, res.Rejected[1].Line)
	assert.Contains(t, res.Rejected[1].Errors, "name too short: A")
	assert.Equal(t, []string{"duplicate email (first seen on line 1)"}, res.Rejected[2].Errors)
}
