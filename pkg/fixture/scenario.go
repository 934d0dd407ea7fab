package fixture

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"digital.vasic.keywords/pkg/testcase"
)

// DefaultPassword is the password used by generated tables.
const DefaultPassword = "Test@123"

// UniqueUsername returns a username that has never signed up,
// so a generated table can be run once without hitting the
// "already exist" alert.
func UniqueUsername() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "user" + id[:10]
}

// SignupLoginSteps returns the table that signs up username on
// the store at baseURL, logs in and verifies the greeting.
func SignupLoginSteps(baseURL, username, password string) []testcase.Step {
	baseURL = strings.TrimRight(baseURL, "/") + "/"
	rows := []struct {
		keyword, locator, data, expected string
	}{
		{"navigate", "", baseURL, "Open the store"},
		{"wait", "", "1", "Wait for the page to load"},
		{"click", "id=signin2", "", "Open the sign-up modal"},
		{"wait_for_element", "id=sign-username", "", "Sign-up form is visible"},
		{"input_text", "id=sign-username", username, "Enter username: " + username},
		{"input_text", "id=sign-password", password, "Enter password"},
		{"click", `xpath=//button[text()="Sign up"]`, "", "Submit the sign-up form"},
		{"handle_alert", "", "accept", "Accept the sign-up alert"},
		{"wait", "", "1", "Wait for the modal to close"},
		{"click", "id=login2", "", "Open the log-in modal"},
		{"wait_for_element", "id=loginusername", "", "Log-in form is visible"},
		{"input_text", "id=loginusername", username, "Enter username: " + username},
		{"input_text", "id=loginpassword", password, "Enter password"},
		{"click", `xpath=//button[text()="Log in"]`, "", "Submit the log-in form"},
		{"wait", "", "2", "Wait for the log-in to complete"},
		{"verify_text", "id=nameofuser", "Welcome " + username, "Greeting shows Welcome " + username},
	}

	steps := make([]testcase.Step, len(rows))
	for i, r := range rows {
		steps[i] = testcase.Step{
			Number:   strconv.Itoa(i + 1),
			Keyword:  r.keyword,
			Locator:  r.locator,
			Data:     r.data,
			Expected: r.expected,
			Row:      i + 1,
		}
	}
	return steps
}

// LoginSteps returns the table that types username on the
// /login page and verifies the greeting contains expected.
func LoginSteps(baseURL, username, expected string) []testcase.Step {
	return []testcase.Step{
		{Number: "1", Keyword: "navigate", Data: strings.TrimRight(baseURL, "/") + "/login", Row: 1},
		{Number: "2", Keyword: "input_text", Locator: "id=username", Data: username, Row: 2},
		{Number: "3", Keyword: "click", Locator: "id=submit", Row: 3},
		{Number: "4", Keyword: "verify_text", Locator: "id=welcome", Data: expected, Row: 4},
	}
}
