package profile

import "testing"

func TestCheckPassword(t *testing.T) {
	commonPasswordsMu.Lock()
	commonPasswords = []string{"p@ssw0rd!"}
	commonPasswordsMu.Unlock()

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcd12345", want: pwdComplexityTag},
		{name: "no upper", pwd: "abcd123!x", want: pwdComplexityTag},
		{name: "similar to name", pwd: "MinsuKim1!", attrs: []string{"Minsu Kim", "minsu@test.test"}, want: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd!", want: pwdNoCommonTag},
		{name: "valid", pwd: "Gr8-Mentor!x", attrs: []string{"Minsu Kim", "minsu@test.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPassword(tt.pwd, tt.attrs...); got != tt.want {
				t.Errorf("checkPassword() = %q, want %q", got, tt.want)
			}
		})
	}
}
