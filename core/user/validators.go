package user

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/unbfeelings/backend/assets"
	"github.com/unbfeelings/backend/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password is too similar to the user's attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"

	commonPasswords     []string
	commonPasswordsOnce sync.Once
)

// InitValidators registers the user struct validations and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(userStructValidation, NewStudent{}, UpdateStudent{}, ResetUserPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

func loadCommonPasswords() {
	gzRdr, err := gzip.NewReader(bytes.NewReader(assets.CommonPasswords))
	if err != nil {
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer gzRdr.Close()

	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords = append(commonPasswords, pwd)
		}
	}
	sort.Strings(commonPasswords)
}

// userStructValidation does struct level validation on NewStudent, UpdateStudent and ResetUserPassword structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewStudent:
		validatePassword(sl, usr.Password, usr.Name, usr.Email)
	case UpdateStudent:
		validatePassword(sl, usr.Password, usr.Name, usr.Email)
	case ResetUserPassword:
		validatePassword(sl, usr.Password)
	}
}

// validatePassword reports the first password policy violation. Empty passwords are left to the "required" tag.
func validatePassword(sl validator.StructLevel, pwd string, usrAttrs ...string) {
	if pwd == "" {
		return
	}
	if tag := checkPassword(pwd, usrAttrs...); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// checkPassword applies the password policy to provided password and returns the tag of the first failing rule:
// - minLen: 8
// - no all numeric
// - no user attrs similarity
// - no common password
func checkPassword(pwd string, usrAttrs ...string) string {
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	if tooSimilar(pwd, usrAttrs...) {
		return pwdAttrSimTag
	}

	if isCommon(pwd) {
		return pwdNoCommonTag
	}
	return ""
}

func tooSimilar(pwd string, usrAttrs ...string) bool {
	lpwd := strings.ToLower(pwd)
	for _, attr := range usrAttrs {
		attr = strings.ToLower(attr)
		if attr == "" {
			continue
		}
		// emails are also compared without their domain
		parts := []string{attr}
		if i := strings.Index(attr, "@"); i > 0 {
			parts = append(parts, attr[:i])
		}
		for _, part := range parts {
			matcher := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(part, ""))
			if matcher.QuickRatio() >= pwdMaxSim && matcher.Ratio() >= pwdMaxSim {
				return true
			}
		}
	}
	return false
}

func isCommon(pwd string) bool {
	commonPasswordsOnce.Do(loadCommonPasswords)

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		return commonPasswords[idx] == lpwd
	}
	return false
}

// passwordError returns the validation error of a password failing the policy for the given user.
func passwordError(pwd string, usr User) error {
	if tag := checkPassword(pwd, usr.Name, usr.Email); tag == pwdAttrSimTag {
		return core.NewFieldError("password", errors.New(pwdAttrSimText))
	}
	return nil
}
