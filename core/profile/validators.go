package profile

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/jhkim0602/monguri-sub002/core"
	appfs "github.com/jhkim0602/monguri-sub002/fs"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to profile attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"

	pwdPolicyTexts = map[string]string{
		pwdMinLenTag:     pwdMinLenText,
		pwdNoSpaceTag:    pwdNoSpaceText,
		pwdNotAllNumTag:  pwdNotAllNumText,
		pwdComplexityTag: pwdComplexityText,
		pwdAttrSimTag:    pwdAttrSimText,
		pwdNoCommonTag:   pwdNoCommonText,
	}

	commonPasswords   []string
	commonPasswordsMu sync.RWMutex
)

const commonPasswordsPath = "assets/common-passwords.txt.gz"

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(profileStructValidation, NewProfile{})
	for tag, text := range pwdPolicyTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// LoadCommonPasswords loads the list of passwords rejected by the password policy.
func LoadCommonPasswords(logger core.Logger) {
	file, err := appfs.FS.Open(commonPasswordsPath)
	if err != nil {
		logger.Error(fmt.Sprintf("profile.LoadCommonPasswords: %v", err), err)
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		logger.Error(fmt.Sprintf("profile.LoadCommonPasswords: %v", err), err)
		return
	}

	pwds := make([]string, 0, 128)
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, strings.ToLower(pwd))
		}
	}
	if err = scanner.Err(); err != nil {
		logger.Error(fmt.Sprintf("profile.LoadCommonPasswords: %v", err), err)
		return
	}
	sort.Strings(pwds)

	commonPasswordsMu.Lock()
	commonPasswords = pwds
	commonPasswordsMu.Unlock()
}

func isCommonPassword(pwd string) bool {
	commonPasswordsMu.RLock()
	defer commonPasswordsMu.RUnlock()

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		return commonPasswords[idx] == lpwd
	}
	return false
}

// profileStructValidation does struct level validation on NewProfile.
func profileStructValidation(sl validator.StructLevel) {
	if np, ok := sl.Current().Interface().(NewProfile); ok {
		if tag := checkPassword(np.Password, np.Name, np.Email); tag != "" {
			sl.ReportError(np.Password, "password", "Password", tag, "")
		}
	}
}

// validatePasswordPolicy applies the password policy outside of struct validation (password resets).
func validatePasswordPolicy(p Profile, pwd string) error {
	if tag := checkPassword(pwd, p.Name, p.Email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdPolicyTexts[tag]})
	}
	return nil
}

// checkPassword applies the password policy to provided password and returns the tag of the first
// violated rule, if any:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no profile attrs similarity
// - no common password
func checkPassword(pwd string, attrs ...string) string {
	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		return pwdComplexityTag
	}

	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}

	if isCommonPassword(pwd) {
		return pwdNoCommonTag
	}
	return ""
}
