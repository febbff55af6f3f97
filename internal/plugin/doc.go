// Package plugin loads Lua guest modules and drives their lifecycle.
//
// # Modules
//
// A module is a Lua file whose name matches the discovery pattern of one of
// the configured directories (internal modules first, then user modules).
// It must define a global entry construct, PluginInterface by default:
//
//	PluginInterface = {}
//	PluginInterface.__index = PluginInterface
//
//	function PluginInterface:new()
//	    return setmetatable({}, self)
//	end
//
//	function PluginInterface:XPluginStart()
//	    return "Hello", "example.hello", "Says hello"
//	end
//
//	function PluginInterface:XPluginEnable()
//	    return 1
//	end
//
// The entry construct may also be a plain function, or any value with a
// __call metamethod, returning the instance. XPluginStart is mandatory and
// must report exactly three strings. XPluginEnable, XPluginDisable,
// XPluginStop and XPluginReceiveMessage are optional.
//
// # Lifecycle
//
// The Controller holds one global state: stopped, enabled or disabled. Every
// lifecycle event is a broadcast over the Registry in the order modules were
// inserted, including stop. A fault raised by one module is logged, counted
// and the broadcast continues with the next module:
//
//	ctrl := plugin.NewController(rt, plugin.ControllerConfig{
//	    Sources: []plugin.Source{
//	        {Dir: internalDir, Pattern: regexp.MustCompile(`^I_PI_.*\.lua$`)},
//	        {Dir: userDir, Pattern: regexp.MustCompile(`^PI_.*\.lua$`)},
//	    },
//	    Logger: logger,
//	})
//	if err := ctrl.Start(); err != nil {
//	    return err
//	}
//	defer ctrl.Stop()
//
//	ctrl.EnableModules()
//	ctrl.ReceiveMessage(7, 101, 42)
package plugin
