package discordbot

import (
	"errors"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type sentMessage struct {
	ChannelID string
	Content   string
	Complex   *discordgo.MessageSend
}

// fakeSession records every REST call the adapter makes.
type fakeSession struct {
	mu         sync.Mutex
	nextID     int
	responses  []*discordgo.InteractionResponse
	edits      []string
	sent       []sentMessage
	edited     []*discordgo.MessageEdit
	deleted    []string
	dmChannels []string
	registered map[string][]*discordgo.ApplicationCommand
	failSend   bool
	failDelete bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{registered: map[string][]*discordgo.ApplicationCommand{}}
}

func (s *fakeSession) id() string {
	s.nextID++
	return "msg-" + strconv.Itoa(s.nextID)
}

func (s *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}

func (s *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content := ""
	if edit.Content != nil {
		content = *edit.Content
	}
	s.edits = append(s.edits, content)
	return &discordgo.Message{ID: s.id(), Content: content}, nil
}

func (s *fakeSession) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		return nil, errors.New("missing access")
	}
	s.sent = append(s.sent, sentMessage{ChannelID: channelID, Content: content})
	return &discordgo.Message{ID: s.id(), ChannelID: channelID, Content: content}, nil
}

func (s *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		return nil, errors.New("missing access")
	}
	s.sent = append(s.sent, sentMessage{ChannelID: channelID, Content: data.Content, Complex: data})
	return &discordgo.Message{ID: s.id(), ChannelID: channelID, Content: data.Content}, nil
}

func (s *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edited = append(s.edited, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (s *fakeSession) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errors.New("unknown message")
	}
	s.deleted = append(s.deleted, channelID+"/"+messageID)
	return nil
}

func (s *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmChannels = append(s.dmChannels, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (s *fakeSession) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[guildID] = commands
	return commands, nil
}

func (s *fakeSession) lastResponse() *discordgo.InteractionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return nil
	}
	return s.responses[len(s.responses)-1]
}

func (s *fakeSession) sentTo(channelID string) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, msg := range s.sent {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	return out
}
