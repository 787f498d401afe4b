// Package credentials keeps the BrowserStack access key in the operating
// system keyring (macOS Keychain, Secret Service on Linux, Windows
// Credential Manager) so it does not have to live in the config file.
package credentials
