package core

import "strconv"

// MessageVersion identifies the auth message template below. Any change to the
// template must bump it, since wallets and verifiers build the text separately.
const MessageVersion = 1

const (
	messageHeader = "FloppFun Authentication"
	messageFooter = "Sign this message to prove ownership of your wallet."
)

// BuildAuthMessage returns the exact text a wallet signs for a challenge.
func BuildAuthMessage(walletAddress, nonce string, timestampMillis int64) string {
	return messageHeader + "\n\n" +
		"Wallet: " + walletAddress + "\n" +
		"Challenge: " + nonce + "\n" +
		"Timestamp: " + strconv.FormatInt(timestampMillis, 10) + "\n\n" +
		messageFooter
}
