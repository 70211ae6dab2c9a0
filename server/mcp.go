package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mbocsi/gomo/device"
)

// MCPServer exposes the registry over MCP stdio so agent tooling can list
// and control the same virtual devices the assistant sees.
type MCPServer struct {
	Server *mcpserver.MCPServer
}

func NewMCPServer() *MCPServer {
	return &MCPServer{Server: mcpserver.NewMCPServer("gomo", "1.0.0")}
}

func (s *MCPServer) Start() error {
	slog.Info("Started stdio MCP server")
	defer func() {
		slog.Info("Shut down stdio MCP server")
	}()
	return mcpserver.ServeStdio(s.Server)
}

func (s *MCPServer) Shutdown() error {
	// ServeStdio returns when stdin closes; nothing else to tear down.
	return nil
}

func (s *MCPServer) registerTools(registry *DeviceRegistry) {
	listDevices := mcp.NewTool("list_devices",
		mcp.WithDescription("Get a list of the virtual devices registered with this server"))
	s.Server.AddTool(listDevices, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type deviceElement struct {
			Name string `json:"name"`
			Addr string `json:"addr"`
			Port int    `json:"port"`
			UUID string `json:"uuid"`
		}
		entries := registry.List()
		res := make([]deviceElement, 0, len(entries))
		for _, entry := range entries {
			res = append(res, deviceElement{
				Name: entry.Info.Name,
				Addr: entry.Info.IP.String(),
				Port: entry.Info.Port,
				UUID: entry.Info.UUID.String(),
			})
		}

		jsonBytes, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.addDeviceTool(registry, "turn_on", "Turn a registered device on",
		func(ctx context.Context, dev device.Device) (device.State, error) { return dev.TurnOn(ctx) })
	s.addDeviceTool(registry, "turn_off", "Turn a registered device off",
		func(ctx context.Context, dev device.Device) (device.State, error) { return dev.TurnOff(ctx) })
	s.addDeviceTool(registry, "check_is_on", "Check whether a registered device is on",
		func(ctx context.Context, dev device.Device) (device.State, error) { return dev.CheckIsOn(ctx) })
}

func (s *MCPServer) addDeviceTool(registry *DeviceRegistry, name, description string, op func(context.Context, device.Device) (device.State, error)) {
	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The device name used at registration (case-insensitive)"),
		))
	s.Server.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		deviceName, ok := request.GetArguments()["name"].(string)
		if !ok || deviceName == "" {
			return mcp.NewToolResultError("missing required argument: name"), nil
		}

		entry, found := registry.Get(deviceName)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("no device named %q", deviceName)), nil
		}

		opCtx, cancel := context.WithTimeout(ctx, requestBudget+time.Second)
		defer cancel()

		state, err := op(opCtx, entry.Handle)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("device unresponsive: %s", err)), nil
		}
		return mcp.NewToolResultText(state.String()), nil
	})
}
