package models

import "strings"

// CommunicationMethod is how a favorite is contacted.
type CommunicationMethod string

const (
	VoiceCall   CommunicationMethod = "voiceCall"
	VideoCall   CommunicationMethod = "videoCall"
	TextMessage CommunicationMethod = "textMessage"

	DEFAULT_METHOD = VoiceCall
)

// CommunicationApp is the application a favorite is dispatched through.
// The set is closed and versioned together with the resolver's target table.
type CommunicationApp string

const (
	PhoneApp    CommunicationApp = "phone"
	MessagesApp CommunicationApp = "messages"
	FaceTimeApp CommunicationApp = "facetime"
	WhatsAppApp CommunicationApp = "whatsapp"
	TelegramApp CommunicationApp = "telegram"
	SignalApp   CommunicationApp = "signal"
	ViberApp    CommunicationApp = "viber"
	SkypeApp    CommunicationApp = "skype"

	DEFAULT_APP = PhoneApp
)

var (
	AllMethods = []CommunicationMethod{VoiceCall, VideoCall, TextMessage}

	AllApps = []CommunicationApp{
		PhoneApp, MessagesApp, FaceTimeApp, WhatsAppApp,
		TelegramApp, SignalApp, ViberApp, SkypeApp,
	}

	emailCapableApps = map[CommunicationApp]bool{
		MessagesApp: true,
		FaceTimeApp: true,
	}
)

func (m CommunicationMethod) IsValid() bool {
	for _, method := range AllMethods {
		if m == method {
			return true
		}
	}
	return false
}

func (a CommunicationApp) IsValid() bool {
	for _, app := range AllApps {
		if a == app {
			return true
		}
	}
	return false
}

// EmailCapable reports whether the app can reach a contact by email identity.
func (a CommunicationApp) EmailCapable() bool {
	return emailCapableApps[a]
}

// ParseMethod accepts the persisted value case-insensitively.
func ParseMethod(value string) (CommunicationMethod, bool) {
	for _, method := range AllMethods {
		if strings.EqualFold(string(method), strings.TrimSpace(value)) {
			return method, true
		}
	}
	return "", false
}

// ParseApp accepts the persisted value case-insensitively.
func ParseApp(value string) (CommunicationApp, bool) {
	for _, app := range AllApps {
		if strings.EqualFold(string(app), strings.TrimSpace(value)) {
			return app, true
		}
	}
	return "", false
}

// MethodOrDefault forward-fills unknown or missing values with DEFAULT_METHOD.
func MethodOrDefault(value string) CommunicationMethod {
	if method, ok := ParseMethod(value); ok {
		return method
	}
	return DEFAULT_METHOD
}

// AppOrDefault forward-fills unknown or missing values with DEFAULT_APP.
func AppOrDefault(value string) CommunicationApp {
	if app, ok := ParseApp(value); ok {
		return app
	}
	return DEFAULT_APP
}
