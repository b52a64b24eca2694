package wire

import (
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/service/session"
	store "github.com/oshokin/echopulse/internal/service/settings"
)

// Settings encodes user settings.
func Settings(s domain.Settings) (*structpb.Struct, error) {
	return Message(map[string]any{
		"sensitivity":                  string(s.Sensitivity),
		"auto_resolve_timeout_minutes": s.AutoResolveTimeoutMinutes,
		"notification_sounds":          s.NotificationSounds,
		"detect_keywords":              stringList(s.DetectKeywords),
	})
}

// ToSettings decodes user settings.
func ToSettings(s *structpb.Struct) domain.Settings {
	return domain.Settings{
		Sensitivity:               domain.Sensitivity(String(s, "sensitivity")),
		AutoResolveTimeoutMinutes: Int(s, "auto_resolve_timeout_minutes"),
		NotificationSounds:        Bool(s, "notification_sounds"),
		DetectKeywords:            Strings(s, "detect_keywords"),
	}
}

// SettingsUpdateFields encodes a settings update, leaving nil fields out.
func SettingsUpdateFields(u store.Update) map[string]any {
	fields := make(map[string]any)

	if u.Sensitivity != nil {
		fields["sensitivity"] = string(*u.Sensitivity)
	}

	if u.AutoResolveTimeoutMinutes != nil {
		fields["auto_resolve_timeout_minutes"] = *u.AutoResolveTimeoutMinutes
	}

	if u.NotificationSounds != nil {
		fields["notification_sounds"] = *u.NotificationSounds
	}

	return fields
}

// ToSettingsUpdate decodes a settings update.
func ToSettingsUpdate(s *structpb.Struct) store.Update {
	var u store.Update

	if raw := OptionalString(s, "sensitivity"); raw != nil {
		sensitivity := domain.Sensitivity(*raw)
		u.Sensitivity = &sensitivity
	}

	u.AutoResolveTimeoutMinutes = OptionalInt(s, "auto_resolve_timeout_minutes")
	u.NotificationSounds = OptionalBool(s, "notification_sounds")

	return u
}

// Status encodes a monitoring session snapshot.
func Status(st session.Status) (*structpb.Struct, error) {
	return Message(map[string]any{
		"listening":  st.Listening,
		"started_at": formatTime(st.StartedAt),
		"alerted":    st.Alerted,
		"ignored":    st.Ignored,
	})
}

// ToStatus decodes a monitoring session snapshot.
func ToStatus(s *structpb.Struct) session.Status {
	return session.Status{
		Listening: Bool(s, "listening"),
		StartedAt: Time(s, "started_at"),
		Alerted:   Int(s, "alerted"),
		Ignored:   Int(s, "ignored"),
	}
}
