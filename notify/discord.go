package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const colorInfo = 0x3498DB

// embedSender is the subset of *discordgo.Session used to post alerts
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts alerts as embeds to an admin channel
type DiscordNotifier struct {
	session   embedSender
	channelID string
}

// NewDiscordNotifier creates a REST-only Discord session for posting alerts
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	if token == "" || channelID == "" {
		return nil, fmt.Errorf("discord token and channel ID are required")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	return &DiscordNotifier{session: dg, channelID: channelID}, nil
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

// Notify posts the alert to the admin channel
func (d *DiscordNotifier) Notify(ctx context.Context, alert Alert) error {
	fields := make([]*discordgo.MessageEmbedField, 0, len(alert.Fields))
	for _, f := range alert.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:  alert.Title,
		Color:  colorInfo,
		Fields: fields,
	}

	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send discord alert: %w", err)
	}
	return nil
}
