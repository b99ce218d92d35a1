// Package mcpsrv serves the privacy shield over MCP.
//
// A Server exposes the shield_profiles, shield_plan, shield_execute,
// shield_mode and shield_budget tools plus the monitor_wallet_privately
// prompt. Every tool shares one shield, so all lookups count against one
// rolling-hour budget and one online/offline switch.
//
// # Basic Usage
//
//	server, err := mcpsrv.NewServer(client.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Profiles and Mode
//
// Extra profiles and the starting mode can be set in code instead of the
// environment:
//
//	server, err := mcpsrv.NewServer(
//	    client.New(),
//	    mcpsrv.WithProfiles(shield.Profile{
//	        Name:     "watchtower",
//	        Override: shield.Override{MaxLookupsPerHour: shield.Ptr(12)},
//	    }),
//	    mcpsrv.WithDefaultProfile("watchtower"),
//	    mcpsrv.WithOffline(),
//	)
//
// # Extension
//
// [WithDepsTool] adds tools that reach the shared shield through [Deps].
// Reproducible plans for debugging come from a seeded source:
//
//	mcpsrv.WithShieldOptions(shield.WithRandom(shield.NewSource(42)))
package mcpsrv
