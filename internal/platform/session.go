package platform

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/config"
)

// NewSession builds the gateway session used by the command surface.
// The session is opened and closed by the fx lifecycle, not here.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	return session, nil
}
