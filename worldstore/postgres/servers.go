package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

type serverRow struct {
	ID            string          `db:"id"`
	IP            string          `db:"ip"`
	Owner         string          `db:"owner"`
	OwnerID       string          `db:"owner_id"`
	Hostname      string          `db:"hostname"`
	SecurityLevel int             `db:"security_level"`
	FirewallLevel int             `db:"firewall_level"`
	Encrypted     bool            `db:"encrypted"`
	HWCpu         float64         `db:"hw_cpu"`
	HWRam         float64         `db:"hw_ram"`
	HWDisk        float64         `db:"hw_disk"`
	HWNet         float64         `db:"hw_net"`
	HardwareHP    float64         `db:"hardware_hp"`
	Software      json.RawMessage `db:"software"`
	LogSeq        uint64          `db:"log_seq"`
	Online        bool            `db:"online"`
	LastReset     sql.NullTime    `db:"last_reset"`
}

func (r serverRow) toDomain() (server.Server, error) {
	var software []server.Software
	if len(r.Software) > 0 {
		if err := json.Unmarshal(r.Software, &software); err != nil {
			return server.Server{}, domainerrors.StoreError("scan_server", err)
		}
	}
	s := server.Server{
		ID:            server.ID(r.ID),
		IP:            r.IP,
		Owner:         server.OwnerKind(r.Owner),
		OwnerID:       r.OwnerID,
		Hostname:      r.Hostname,
		SecurityLevel: r.SecurityLevel,
		FirewallLevel: r.FirewallLevel,
		Encrypted:     r.Encrypted,
		Hardware:      server.HardwareSpec{CPU: r.HWCpu, RAM: r.HWRam, Disk: r.HWDisk, Net: r.HWNet},
		HardwareHP:    server.Health(r.HardwareHP),
		Software:      software,
		LogSeq:        r.LogSeq,
		Online:        r.Online,
	}
	if r.LastReset.Valid {
		s.LastReset = r.LastReset.Time
	}
	return s, nil
}

func (s *Store) GetServer(ctx context.Context, id server.ID) (server.Server, error) {
	var row serverRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT id, ip, owner, owner_id, hostname, security_level, firewall_level, encrypted,
		       hw_cpu, hw_ram, hw_disk, hw_net, hardware_hp, software, log_seq, online, last_reset
		FROM servers WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return server.Server{}, domainerrors.NotFound("server", string(id))
	}
	if err != nil {
		return server.Server{}, domainerrors.StoreError("get_server", err)
	}
	return row.toDomain()
}

func (s *Store) GetServerByIP(ctx context.Context, ip string) (server.Server, error) {
	var row serverRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT id, ip, owner, owner_id, hostname, security_level, firewall_level, encrypted,
		       hw_cpu, hw_ram, hw_disk, hw_net, hardware_hp, software, log_seq, online, last_reset
		FROM servers WHERE ip = $1`, ip)
	if errors.Is(err, sql.ErrNoRows) {
		return server.Server{}, domainerrors.NotFound("server", ip)
	}
	if err != nil {
		return server.Server{}, domainerrors.StoreError("get_server_by_ip", err)
	}
	return row.toDomain()
}

func (s *Store) CreateServer(ctx context.Context, srv server.Server) error {
	softwareJSON, err := json.Marshal(srv.Software)
	if err != nil {
		return domainerrors.StoreError("create_server", err)
	}
	_, err = s.ext.ExecContext(ctx, `
		INSERT INTO servers (id, ip, owner, owner_id, hostname, security_level, firewall_level,
		                      encrypted, hw_cpu, hw_ram, hw_disk, hw_net, hardware_hp, software,
		                      log_seq, online, last_reset)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		string(srv.ID), srv.IP, string(srv.Owner), srv.OwnerID, srv.Hostname, srv.SecurityLevel,
		srv.FirewallLevel, srv.Encrypted, srv.Hardware.CPU, srv.Hardware.RAM, srv.Hardware.Disk,
		srv.Hardware.Net, float64(srv.HardwareHP), softwareJSON, srv.LogSeq, srv.Online, nullTime(srv.LastReset))
	if err != nil {
		return domainerrors.StoreError("create_server", err)
	}
	return nil
}

func (s *Store) UpdateServer(ctx context.Context, srv server.Server) error {
	softwareJSON, err := json.Marshal(srv.Software)
	if err != nil {
		return domainerrors.StoreError("update_server", err)
	}
	result, err := s.ext.ExecContext(ctx, `
		UPDATE servers SET ip = $2, owner = $3, owner_id = $4, hostname = $5, security_level = $6,
		       firewall_level = $7, encrypted = $8, hw_cpu = $9, hw_ram = $10, hw_disk = $11,
		       hw_net = $12, hardware_hp = $13, software = $14, log_seq = $15, online = $16,
		       last_reset = $17
		WHERE id = $1`,
		string(srv.ID), srv.IP, string(srv.Owner), srv.OwnerID, srv.Hostname, srv.SecurityLevel,
		srv.FirewallLevel, srv.Encrypted, srv.Hardware.CPU, srv.Hardware.RAM, srv.Hardware.Disk,
		srv.Hardware.Net, float64(srv.HardwareHP), softwareJSON, srv.LogSeq, srv.Online, nullTime(srv.LastReset))
	if err != nil {
		return domainerrors.StoreError("update_server", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("server", string(srv.ID))
	}
	return nil
}

func (s *Store) DeleteServer(ctx context.Context, id server.ID) error {
	result, err := s.ext.ExecContext(ctx, `DELETE FROM servers WHERE id = $1`, string(id))
	if err != nil {
		return domainerrors.StoreError("delete_server", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("server", string(id))
	}
	return nil
}

// GetSoftware, CreateSoftware, UpdateSoftware and DeleteSoftware all read the
// whole software JSONB column, mutate it in Go and write it back — the
// software list per server is small (spec §3's disk-capacity invariant
// bounds it implicitly) so round-tripping the array avoids a second table
// for what the in-memory store also just keeps as a slice.

func (s *Store) GetSoftware(ctx context.Context, serverID server.ID, id server.SoftwareID) (server.Software, error) {
	srv, err := s.GetServer(ctx, serverID)
	if err != nil {
		return server.Software{}, err
	}
	sw, ok := srv.FindSoftware(id)
	if !ok {
		return server.Software{}, domainerrors.NotFound("software", string(id))
	}
	return sw, nil
}

func (s *Store) CreateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error {
	srv, err := s.GetServer(ctx, serverID)
	if err != nil {
		return err
	}
	srv.Software = append(srv.Software, sw)
	return s.UpdateServer(ctx, srv)
}

func (s *Store) UpdateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error {
	srv, err := s.GetServer(ctx, serverID)
	if err != nil {
		return err
	}
	for i, existing := range srv.Software {
		if existing.ID == sw.ID {
			srv.Software[i] = sw
			return s.UpdateServer(ctx, srv)
		}
	}
	return domainerrors.NotFound("software", string(sw.ID))
}

func (s *Store) DeleteSoftware(ctx context.Context, serverID server.ID, id server.SoftwareID) error {
	srv, err := s.GetServer(ctx, serverID)
	if err != nil {
		return err
	}
	for i, existing := range srv.Software {
		if existing.ID == id {
			srv.Software = append(srv.Software[:i], srv.Software[i+1:]...)
			return s.UpdateServer(ctx, srv)
		}
	}
	return domainerrors.NotFound("software", string(id))
}
