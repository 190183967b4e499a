package integration_test

import (
	"fmt"
)

const menu = "[create user] or [login user]"

// connect dials the server and waits for the login menu.
func connect(sshAddr string) (*terminalClient, error) {
	tc, err := newTerminalClient(sshAddr)
	if err != nil {
		return nil, err
	}
	if output, ok := tc.waitFor(menu, defaultWaitTimeout); !ok {
		tc.Close()
		return nil, fmt.Errorf("did not get the login menu: %q", output)
	}
	return tc, nil
}

// createUser creates a new user via SSH and returns a terminal client logged in as that user.
func createUser(sshAddr, username, password string) (*terminalClient, error) {
	tc, err := connect(sshAddr)
	if err != nil {
		return nil, err
	}
	for _, step := range [][2]string{
		{"create user", "Enter new username"},
		{username, "Enter new password"},
		{password, "Repeat new password"},
		{password, "with provided password?"},
		{"y", fmt.Sprintf("Welcome %s!", username)},
	} {
		if _, err := tc.expect(step[0], step[1]); err != nil {
			tc.Close()
			return nil, err
		}
	}
	return tc, nil
}

// loginUser logs in an existing user via SSH and returns the client once
// expected has been printed.
func loginUser(sshAddr, username, password, expected string) (*terminalClient, error) {
	tc, err := connect(sshAddr)
	if err != nil {
		return nil, err
	}
	for _, step := range [][2]string{
		{"login user", "Enter username"},
		{username, "Enter password"},
		{password, expected},
	} {
		if _, err := tc.expect(step[0], step[1]); err != nil {
			tc.Close()
			return nil, err
		}
	}
	return tc, nil
}
