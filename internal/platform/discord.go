package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/config"
	"github.com/valyala/fasthttp"
)

const discordAPIBase = "https://discord.com/api/v10"

// DiscordClient implements ChatPlatform against the Discord REST API.
// The gateway session (commands) lives separately; this client only
// covers the poll round-trips the engine needs.
type DiscordClient struct {
	token  string
	client *fasthttp.Client
}

func NewDiscordClient(cfg *config.Config) *DiscordClient {
	return &DiscordClient{
		token: cfg.DiscordToken,
		client: &fasthttp.Client{
			MaxConnsPerHost:     20,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type discordPollMedia struct {
	Text string `json:"text"`
}

type discordPollAnswer struct {
	AnswerID int              `json:"answer_id,omitempty"`
	Media    discordPollMedia `json:"poll_media"`
}

type discordPollResults struct {
	Finalized    bool `json:"is_finalized"`
	AnswerCounts []struct {
		ID    int `json:"id"`
		Count int `json:"count"`
	} `json:"answer_counts"`
}

type discordPoll struct {
	Question         discordPollMedia    `json:"question"`
	Answers          []discordPollAnswer `json:"answers"`
	Duration         int                 `json:"duration,omitempty"`
	AllowMultiselect bool                `json:"allow_multiselect"`
	Results          *discordPollResults `json:"results,omitempty"`
}

type discordMessage struct {
	ID   string       `json:"id"`
	Poll *discordPoll `json:"poll,omitempty"`
}

type createMessagePayload struct {
	Content string       `json:"content,omitempty"`
	Poll    *discordPoll `json:"poll,omitempty"`
}

type answerVotersResponse struct {
	Users []struct {
		ID string `json:"id"`
	} `json:"users"`
}

func (c *DiscordClient) SendPoll(ctx context.Context, params SendPollParams) (string, error) {
	answers := make([]discordPollAnswer, len(params.Answers))
	for i, text := range params.Answers {
		answers[i] = discordPollAnswer{Media: discordPollMedia{Text: text}}
	}

	payload := createMessagePayload{
		Poll: &discordPoll{
			Question: discordPollMedia{Text: params.Question},
			Answers:  answers,
			Duration: params.DurationHours,
		},
	}

	var msg discordMessage
	err := c.do(ctx, fasthttp.MethodPost,
		fmt.Sprintf("%s/channels/%s/messages", discordAPIBase, params.ChannelID),
		payload, &msg)
	if err != nil {
		return "", fmt.Errorf("send poll: %w", err)
	}
	return msg.ID, nil
}

func (c *DiscordClient) SendNotice(ctx context.Context, channelID, content string) error {
	err := c.do(ctx, fasthttp.MethodPost,
		fmt.Sprintf("%s/channels/%s/messages", discordAPIBase, channelID),
		createMessagePayload{Content: content}, nil)
	if err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

func (c *DiscordClient) FetchPollMessage(ctx context.Context, channelID, messageID string) (*PollMessage, error) {
	var msg discordMessage
	err := c.do(ctx, fasthttp.MethodGet,
		fmt.Sprintf("%s/channels/%s/messages/%s", discordAPIBase, channelID, messageID),
		nil, &msg)
	if err != nil {
		return nil, fmt.Errorf("fetch poll message: %w", err)
	}
	if msg.Poll == nil {
		return nil, fmt.Errorf("message %s carries no poll", messageID)
	}

	out := &PollMessage{MessageID: msg.ID}
	counts := make(map[int]int)
	if msg.Poll.Results != nil {
		out.Finalized = msg.Poll.Results.Finalized
		for _, ac := range msg.Poll.Results.AnswerCounts {
			counts[ac.ID] = ac.Count
		}
	}
	for _, a := range msg.Poll.Answers {
		out.Answers = append(out.Answers, PollAnswer{
			ID:    a.AnswerID,
			Text:  a.Media.Text,
			Count: counts[a.AnswerID],
		})
	}
	return out, nil
}

func (c *DiscordClient) ListAnswerVoters(ctx context.Context, channelID, messageID string, answerID, limit int, after string) ([]string, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if after != "" {
		q.Set("after", after)
	}

	var resp answerVotersResponse
	err := c.do(ctx, fasthttp.MethodGet,
		fmt.Sprintf("%s/channels/%s/polls/%s/answers/%d?%s",
			discordAPIBase, channelID, messageID, answerID, q.Encode()),
		nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("list answer voters: %w", err)
	}

	ids := make([]string, len(resp.Users))
	for i, u := range resp.Users {
		ids[i] = u.ID
	}
	return ids, nil
}

func (c *DiscordClient) EndPoll(ctx context.Context, channelID, messageID string) error {
	err := c.do(ctx, fasthttp.MethodPost,
		fmt.Sprintf("%s/channels/%s/polls/%s/expire", discordAPIBase, channelID, messageID),
		nil, nil)
	if err != nil {
		return fmt.Errorf("end poll: %w", err)
	}
	return nil
}

func (c *DiscordClient) do(ctx context.Context, method, uri string, body, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bot "+c.token)

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(encoded)
	}

	deadline, ok := ctx.Deadline()
	var err error
	if ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return fmt.Errorf("discord API returned status %d: %s", status, resp.Body())
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode discord response: %w", err)
		}
	}
	return nil
}
