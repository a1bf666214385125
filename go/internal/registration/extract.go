package registration

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/crickyard/registration/go/internal/models"
	"github.com/crickyard/registration/go/internal/storage"
)

// Form is the one-shot snapshot of a parsed multipart submission: named text
// fields plus named file fields with their bytes already drained. The HTTP
// layer builds it exactly once per request; extraction owns it from there.
type Form struct {
	Values map[string][]string
	Files  map[string]storage.File
}

// FormFromMultipart drains a parsed multipart form into a Form. Each file
// part is read exactly once.
func FormFromMultipart(mf *multipart.Form) (Form, error) {
	form := Form{
		Values: mf.Value,
		Files:  make(map[string]storage.File, len(mf.File)),
	}
	for field, headers := range mf.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return Form{}, fmt.Errorf("failed to open file field %s: %w", field, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return Form{}, fmt.Errorf("failed to read file field %s: %w", field, err)
		}
		form.Files[field] = storage.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return form, nil
}

func (f Form) value(name string) (string, bool) {
	vs, ok := f.Values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}

func (f Form) file(name string) (storage.File, bool) {
	file, ok := f.Files[name]
	return file, ok
}

// IndexedScanner addresses a variable-length nested list laid flat in a form
// as <prefix>_<i>_<field>. The scan terminates at the first index whose
// anchor field is absent, which bounds the otherwise unbounded walk without
// requiring the client to send a length field.
type IndexedScanner struct {
	Prefix string
	Anchor string
}

// FieldName formats the form key for index i and field name.
func (s IndexedScanner) FieldName(i int, name string) string {
	return fmt.Sprintf("%s_%d_%s", s.Prefix, i, name)
}

// Count walks indexes from zero until the anchor field goes missing.
func (s IndexedScanner) Count(form Form) int {
	n := 0
	for {
		if _, ok := form.value(s.FieldName(n, s.Anchor)); !ok {
			return n
		}
		n++
	}
}

// playerScanner is the canonical scanner for roster entries.
var playerScanner = IndexedScanner{Prefix: "player", Anchor: "name"}

// PlayerEntry is one extracted roster row before persistence. Jersey numbers
// are already defaulted to the player's 1-based position so the insert can
// never trip a NOT NULL constraint.
type PlayerEntry struct {
	Name         string
	Age          int
	Phone        string
	Role         models.PlayerRole
	JerseyNumber string
	Aadhar       *storage.File
	Subscription *storage.File
}

// RegistrationRequest is the structured form of one submission.
type RegistrationRequest struct {
	TeamName    string
	ChurchName  string
	Captain     models.Contact
	ViceCaptain models.Contact
	Players     []PlayerEntry

	PastorLetter   *storage.File
	PaymentReceipt *storage.File
	GroupPhoto     *storage.File
}

// Age bounds a human player can plausibly have.
const (
	minPlayerAge = 15
	maxPlayerAge = 60
)

var requiredTeamFields = []string{
	"team_name",
	"church_name",
	"captain_name",
	"captain_phone",
	"captain_whatsapp",
	"captain_email",
	"vice_captain_name",
	"vice_captain_phone",
	"vice_captain_whatsapp",
	"vice_captain_email",
}

// ExtractRegistration turns the unordered bag of form fields into a
// RegistrationRequest, or fails with ValidationErrors naming every offending
// field.
func ExtractRegistration(form Form) (*RegistrationRequest, error) {
	var errs ValidationErrors

	fields := make(map[string]string, len(requiredTeamFields))
	for _, name := range requiredTeamFields {
		v, ok := form.value(name)
		if !ok || v == "" {
			errs = append(errs, &ValidationError{Field: name, Msg: "required field is missing"})
			continue
		}
		fields[name] = v
	}

	req := &RegistrationRequest{
		TeamName:   fields["team_name"],
		ChurchName: fields["church_name"],
		Captain: models.Contact{
			Name:     fields["captain_name"],
			Phone:    fields["captain_phone"],
			WhatsApp: fields["captain_whatsapp"],
			Email:    fields["captain_email"],
		},
		ViceCaptain: models.Contact{
			Name:     fields["vice_captain_name"],
			Phone:    fields["vice_captain_phone"],
			WhatsApp: fields["vice_captain_whatsapp"],
			Email:    fields["vice_captain_email"],
		},
	}

	if f, ok := form.file("pastor_letter_file"); ok {
		req.PastorLetter = &f
	}
	if f, ok := form.file("payment_receipt_file"); ok {
		req.PaymentReceipt = &f
	}
	if f, ok := form.file("group_photo_file"); ok {
		req.GroupPhoto = &f
	}

	count := playerScanner.Count(form)
	for i := 0; i < count; i++ {
		entry, playerErrs := extractPlayer(form, i)
		if len(playerErrs) > 0 {
			errs = append(errs, playerErrs...)
			continue
		}
		req.Players = append(req.Players, entry)
	}

	if count < models.MinSquadSize || count > models.MaxSquadSize {
		errs = append(errs, &ValidationError{
			Field: "players",
			Msg:   fmt.Sprintf("a team needs %d to %d players, got %d", models.MinSquadSize, models.MaxSquadSize, count),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return req, nil
}

func extractPlayer(form Form, i int) (PlayerEntry, ValidationErrors) {
	var errs ValidationErrors

	nameField := playerScanner.FieldName(i, "name")
	name, _ := form.value(nameField)
	if name == "" {
		errs = append(errs, &ValidationError{Field: nameField, Msg: "required field is missing"})
	}

	ageField := playerScanner.FieldName(i, "age")
	ageRaw, ok := form.value(ageField)
	var age int
	if !ok || ageRaw == "" {
		errs = append(errs, &ValidationError{Field: ageField, Msg: "required field is missing"})
	} else {
		parsed, err := strconv.Atoi(ageRaw)
		switch {
		case err != nil:
			errs = append(errs, &ValidationError{Field: ageField, Msg: "age must be a number"})
		case parsed < minPlayerAge || parsed > maxPlayerAge:
			errs = append(errs, &ValidationError{
				Field: ageField,
				Msg:   fmt.Sprintf("age must be between %d and %d", minPlayerAge, maxPlayerAge),
			})
		default:
			age = parsed
		}
	}

	phoneField := playerScanner.FieldName(i, "phone")
	phone, ok := form.value(phoneField)
	if !ok || phone == "" {
		errs = append(errs, &ValidationError{Field: phoneField, Msg: "required field is missing"})
	}

	roleField := playerScanner.FieldName(i, "role")
	roleRaw, ok := form.value(roleField)
	role := models.PlayerRole(roleRaw)
	if !ok || roleRaw == "" {
		errs = append(errs, &ValidationError{Field: roleField, Msg: "required field is missing"})
	} else if !role.Valid() {
		errs = append(errs, &ValidationError{
			Field: roleField,
			Msg:   "role must be one of batsman, bowler, all-rounder, wicket-keeper",
		})
	}

	jersey, ok := form.value(playerScanner.FieldName(i, "jersey_number"))
	if !ok || jersey == "" {
		jersey = strconv.Itoa(i + 1)
	}

	entry := PlayerEntry{
		Name:         name,
		Age:          age,
		Phone:        phone,
		Role:         role,
		JerseyNumber: jersey,
	}
	if f, ok := form.file(playerScanner.FieldName(i, "aadhar_file")); ok {
		entry.Aadhar = &f
	}
	if f, ok := form.file(playerScanner.FieldName(i, "subscription_file")); ok {
		entry.Subscription = &f
	}
	return entry, errs
}
