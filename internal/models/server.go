package models

import (
	"net"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Server is a tenant: one Minecraft server owned by a Discord user.
type Server struct {
	ID           string `json:"id" gorm:"primaryKey"`
	Name         string `json:"name" gorm:"not null"`
	IP           string `json:"ip" gorm:"column:ip;not null"`
	RCONPort     int    `json:"rcon_port" gorm:"column:rcon_port;not null"`
	RCONPassword string `json:"-" gorm:"column:rcon_password;not null"`
	RCONStatus   bool   `json:"rcon_status" gorm:"column:rcon_status"`

	// ContainerID routes console commands through `docker exec rcon-cli`
	// for servers hosted next to this service.
	ContainerID string `json:"container_id,omitempty"`

	OwnerID string `json:"owner_id" gorm:"index;not null"`
	Admins  string `json:"admins"` // comma separated Discord user ids

	Logo           string  `json:"logo"`
	OwnCSS         string  `json:"own_css" gorm:"column:own_css"`
	ShopStyle      string  `json:"shop_style"`
	DiscordWebhook string  `json:"discord_webhook,omitempty"`
	Domain         *string `json:"domain,omitempty" gorm:"uniqueIndex"`

	Online  bool   `json:"online"`
	Version string `json:"version"`
	Players string `json:"players"`

	Revision  int            `json:"-" gorm:"not null;default:0"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// RCONAddress returns host:port of the remote console.
func (s *Server) RCONAddress() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.RCONPort))
}

// AdminIDs returns the parsed admin list.
func (s *Server) AdminIDs() []string {
	var ids []string
	for _, id := range strings.Split(s.Admins, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsManagedBy reports whether userID owns the server or is one of its admins.
func (s *Server) IsManagedBy(userID string) bool {
	if userID == "" {
		return false
	}
	if s.OwnerID == userID {
		return true
	}
	for _, id := range s.AdminIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// ConsoleTarget returns the credentials needed to reach the server console.
func (s *Server) ConsoleTarget() ConsoleTarget {
	return ConsoleTarget{
		Address:     s.RCONAddress(),
		Password:    s.RCONPassword,
		ContainerID: s.ContainerID,
	}
}

// ConsoleTarget identifies one remote console.
type ConsoleTarget struct {
	Address     string
	Password    string
	ContainerID string
}

// ServerStatus is what the external status API reports about a server.
type ServerStatus struct {
	Online        bool   `json:"online"`
	Version       string `json:"version"`
	PlayersOnline int    `json:"players_online"`
	PlayersMax    int    `json:"players_max"`
}

// PlayersLabel formats the player count as "online/max".
func (s ServerStatus) PlayersLabel() string {
	return strconv.Itoa(s.PlayersOnline) + "/" + strconv.Itoa(s.PlayersMax)
}

// RegisterServerRequest is the body of POST /api/v1/servers
type RegisterServerRequest struct {
	Name         string `json:"server_name"`
	IP           string `json:"server_ip"`
	RCONPassword string `json:"rcon_password"`
	RCONPort     int    `json:"rcon_port"`
}

// UpdateSettingsRequest is the body of PUT /api/v1/servers/{id}/settings
type UpdateSettingsRequest struct {
	Name         string `json:"server_name"`
	IP           string `json:"server_ip"`
	RCONPassword string `json:"rcon_password"`
	RCONPort     int    `json:"rcon_port"`
}

// CustomizeWebsiteRequest is the body of PUT /api/v1/servers/{id}/website
type CustomizeWebsiteRequest struct {
	Logo           string `json:"server_logo"`
	OwnCSS         string `json:"own_css"`
	ShopStyle      string `json:"shop_style"`
	DiscordWebhook string `json:"discord_webhook"`
	Admins         string `json:"admins"`
	Domain         string `json:"own_domain"`
}
